package rbac

// Feature keys of the Valhalla console.
const (
	FeatureOwners       = "owners"
	FeatureApartments   = "apartments"
	FeatureTowers       = "towers"
	FeatureGuards       = "guards"
	FeaturePayments     = "payments"
	FeatureReservations = "reservations"
	FeaturePQRS         = "pqrs"
	FeatureSurveys      = "surveys"
	FeaturePets         = "pets"
	FeatureParking      = "parking"
	FeatureVisitors     = "visitors"
	FeatureFacilities   = "facilities"
	FeatureProfile      = "profile"
)

// Display groups.
const (
	GroupResidents = "Residentes"
	GroupProperty  = "Propiedad"
	GroupFinance   = "Finanzas"
	GroupCommunity = "Comunidad"
	GroupSecurity  = "Seguridad"
	GroupAccount   = "Cuenta"
)

// selfService lets a role read and update its own record.
var selfService = PermissionSet{CanView: true, CanEdit: true}

// DefaultFeatures returns the console feature table in registry order.
func DefaultFeatures() []Feature {
	return []Feature{
		{
			Key: FeatureOwners, Label: "Propietarios", Icon: "users", Path: "owners",
			Group: GroupResidents, Order: Order(1), ShowInDashboard: true, QuickAccess: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
			},
		},
		{
			Key: FeatureApartments, Label: "Apartamentos", Icon: "home", Path: "apartments",
			Group: GroupProperty, Order: Order(2), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleSecurity:      ViewOnly(),
			},
		},
		{
			Key: FeatureTowers, Label: "Torres", Icon: "building", Path: "towers",
			Group: GroupProperty, Order: Order(3), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
			},
		},
		{
			Key: FeatureGuards, Label: "Vigilantes", Icon: "shield", Path: "guards",
			Group: GroupSecurity, Order: Order(4), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
			},
		},
		{
			Key: FeaturePayments, Label: "Pagos", Icon: "credit-card", Path: "payments",
			Group: GroupFinance, Order: Order(5), ShowInDashboard: true, QuickAccess: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         ViewOnly(),
			},
		},
		{
			Key: FeatureReservations, Label: "Reservas", Icon: "calendar", Path: "reservations",
			Group: GroupCommunity, Order: Order(6), ShowInDashboard: true, QuickAccess: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         {CanView: true, CanCreate: true},
				RoleSecurity:      ViewOnly(),
			},
		},
		{
			Key: FeaturePQRS, Label: "PQRS", Icon: "message-circle", Path: "pqrs",
			Group: GroupCommunity, Order: Order(7), ShowInDashboard: true, QuickAccess: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         {CanView: true, CanCreate: true},
			},
		},
		{
			Key: FeatureSurveys, Label: "Encuestas", Icon: "clipboard", Path: "surveys",
			Group: GroupCommunity, Order: Order(8), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         ViewOnly(),
			},
		},
		{
			Key: FeaturePets, Label: "Mascotas", Icon: "heart", Path: "pets",
			Group: GroupResidents, Order: Order(9), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         {CanView: true, CanCreate: true, CanEdit: true},
				RoleSecurity:      ViewOnly(),
			},
		},
		{
			Key: FeatureParking, Label: "Parqueaderos", Icon: "truck", Path: "parking",
			Group: GroupProperty, Order: Order(10), ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         ViewOnly(),
				RoleSecurity:      {CanView: true, CanEdit: true},
			},
		},
		{
			Key: FeatureVisitors, Label: "Visitantes", Icon: "user-check", Path: "visitors",
			Group: GroupSecurity, Order: Order(11), ShowInDashboard: true, QuickAccess: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         ViewOnly(),
				RoleSecurity:      ManageAll(),
			},
		},
		{
			Key: FeatureFacilities, Label: "Zonas comunes", Icon: "map", Path: "facilities",
			Group: GroupCommunity, ShowInDashboard: true,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: ManageAll(),
				RoleOwner:         ViewOnly(),
			},
		},
		{
			Key: FeatureProfile, Label: "Mi perfil", Icon: "user", Path: "profile",
			Group: GroupAccount,
			Permissions: map[Role]PermissionSet{
				RoleAdministrator: selfService,
				RoleOwner:         selfService,
				RoleSecurity:      selfService,
			},
		},
	}
}

// DefaultRegistry returns the console registry.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultFeatures()...)
}
