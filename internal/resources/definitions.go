// Package resources serves the CRUD screens of every console feature over the
// Valhalla REST API.
package resources

import "github.com/valhalla/console/internal/rbac"

// Kind drives how a value is parsed from forms and displayed.
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindEmail    Kind = "email"
	KindNumber   Kind = "number"
	KindMoney    Kind = "money"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindBool     Kind = "bool"
)

// Option is a choice of a select field.
type Option struct {
	Value string
	Label string
}

// Column is shown in list screens.
type Column struct {
	Key   string
	Label string
	Kind  Kind
}

// Field is an editable attribute. Rules uses validator tags.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Rules   string
	Options []Option
}

// Definition binds a registry feature to its backend endpoint and screens.
type Definition struct {
	FeatureKey string
	Endpoint   string
	Title      string
	Singular   string
	Columns    []Column
	Fields     []Field
}

func statusOptions(values ...string) []Option {
	out := make([]Option, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		out = append(out, Option{Value: values[i], Label: values[i+1]})
	}
	return out
}

// DefaultDefinitions lists the screens of every feature with a CRUD surface.
// The profile feature has its own screen.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			FeatureKey: rbac.FeatureOwners, Endpoint: "owners", Title: "Propietarios", Singular: "propietario",
			Columns: []Column{
				{Key: "fullName", Label: "Nombre"},
				{Key: "document", Label: "Documento"},
				{Key: "email", Label: "Correo"},
				{Key: "phone", Label: "Teléfono"},
			},
			Fields: []Field{
				{Name: "fullName", Label: "Nombre completo", Kind: KindText, Rules: "required,max=120"},
				{Name: "document", Label: "Documento", Kind: KindText, Rules: "required,alphanum,max=20"},
				{Name: "email", Label: "Correo", Kind: KindEmail, Rules: "required,email"},
				{Name: "phone", Label: "Teléfono", Kind: KindText, Rules: "omitempty,max=20"},
			},
		},
		{
			FeatureKey: rbac.FeatureApartments, Endpoint: "apartments", Title: "Apartamentos", Singular: "apartamento",
			Columns: []Column{
				{Key: "number", Label: "Número"},
				{Key: "tower", Label: "Torre"},
				{Key: "area", Label: "Área (m²)", Kind: KindNumber},
				{Key: "ownerName", Label: "Propietario"},
			},
			Fields: []Field{
				{Name: "number", Label: "Número", Kind: KindText, Rules: "required,max=10"},
				{Name: "towerId", Label: "Torre", Kind: KindNumber, Rules: "required,number"},
				{Name: "area", Label: "Área (m²)", Kind: KindNumber, Rules: "omitempty,numeric"},
				{Name: "ownerId", Label: "Propietario", Kind: KindNumber, Rules: "omitempty,number"},
			},
		},
		{
			FeatureKey: rbac.FeatureTowers, Endpoint: "towers", Title: "Torres", Singular: "torre",
			Columns: []Column{
				{Key: "name", Label: "Nombre"},
				{Key: "floors", Label: "Pisos", Kind: KindNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Nombre", Kind: KindText, Rules: "required,max=60"},
				{Name: "floors", Label: "Pisos", Kind: KindNumber, Rules: "required,number"},
			},
		},
		{
			FeatureKey: rbac.FeatureGuards, Endpoint: "guards", Title: "Vigilantes", Singular: "vigilante",
			Columns: []Column{
				{Key: "fullName", Label: "Nombre"},
				{Key: "shift", Label: "Turno"},
				{Key: "phone", Label: "Teléfono"},
			},
			Fields: []Field{
				{Name: "fullName", Label: "Nombre completo", Kind: KindText, Rules: "required,max=120"},
				{Name: "shift", Label: "Turno", Kind: KindSelect, Rules: "required,oneof=day night",
					Options: statusOptions("day", "Diurno", "night", "Nocturno")},
				{Name: "phone", Label: "Teléfono", Kind: KindText, Rules: "omitempty,max=20"},
			},
		},
		{
			FeatureKey: rbac.FeaturePayments, Endpoint: "payments", Title: "Pagos", Singular: "pago",
			Columns: []Column{
				{Key: "apartment", Label: "Apartamento"},
				{Key: "concept", Label: "Concepto"},
				{Key: "amount", Label: "Valor", Kind: KindMoney},
				{Key: "dueDate", Label: "Vence", Kind: KindDate},
				{Key: "status", Label: "Estado"},
			},
			Fields: []Field{
				{Name: "apartmentId", Label: "Apartamento", Kind: KindNumber, Rules: "required,number"},
				{Name: "concept", Label: "Concepto", Kind: KindText, Rules: "required,max=120"},
				{Name: "amount", Label: "Valor", Kind: KindMoney, Rules: "required,numeric"},
				{Name: "dueDate", Label: "Vence", Kind: KindDate, Rules: "required,datetime=2006-01-02"},
				{Name: "status", Label: "Estado", Kind: KindSelect, Rules: "required,oneof=pending paid overdue",
					Options: statusOptions("pending", "Pendiente", "paid", "Pagado", "overdue", "Vencido")},
			},
		},
		{
			FeatureKey: rbac.FeatureReservations, Endpoint: "reservations", Title: "Reservas", Singular: "reserva",
			Columns: []Column{
				{Key: "facility", Label: "Zona común"},
				{Key: "date", Label: "Fecha", Kind: KindDate},
				{Key: "apartment", Label: "Apartamento"},
				{Key: "status", Label: "Estado"},
			},
			Fields: []Field{
				{Name: "facilityId", Label: "Zona común", Kind: KindNumber, Rules: "required,number"},
				{Name: "date", Label: "Fecha", Kind: KindDate, Rules: "required,datetime=2006-01-02"},
				{Name: "notes", Label: "Notas", Kind: KindTextarea, Rules: "omitempty,max=500"},
			},
		},
		{
			FeatureKey: rbac.FeaturePQRS, Endpoint: "pqrs", Title: "PQRS", Singular: "solicitud",
			Columns: []Column{
				{Key: "type", Label: "Tipo"},
				{Key: "subject", Label: "Asunto"},
				{Key: "status", Label: "Estado"},
				{Key: "createdAt", Label: "Radicada", Kind: KindDate},
			},
			Fields: []Field{
				{Name: "type", Label: "Tipo", Kind: KindSelect, Rules: "required,oneof=petition complaint claim suggestion",
					Options: statusOptions("petition", "Petición", "complaint", "Queja", "claim", "Reclamo", "suggestion", "Sugerencia")},
				{Name: "subject", Label: "Asunto", Kind: KindText, Rules: "required,max=150"},
				{Name: "description", Label: "Descripción", Kind: KindTextarea, Rules: "required,max=2000"},
			},
		},
		{
			FeatureKey: rbac.FeatureSurveys, Endpoint: "surveys", Title: "Encuestas", Singular: "encuesta",
			Columns: []Column{
				{Key: "title", Label: "Título"},
				{Key: "closesAt", Label: "Cierra", Kind: KindDate},
			},
			Fields: []Field{
				{Name: "title", Label: "Título", Kind: KindText, Rules: "required,max=150"},
				{Name: "description", Label: "Descripción", Kind: KindTextarea, Rules: "omitempty,max=2000"},
				{Name: "closesAt", Label: "Cierra", Kind: KindDate, Rules: "required,datetime=2006-01-02"},
			},
		},
		{
			FeatureKey: rbac.FeaturePets, Endpoint: "pets", Title: "Mascotas", Singular: "mascota",
			Columns: []Column{
				{Key: "name", Label: "Nombre"},
				{Key: "species", Label: "Especie"},
				{Key: "apartment", Label: "Apartamento"},
			},
			Fields: []Field{
				{Name: "name", Label: "Nombre", Kind: KindText, Rules: "required,max=60"},
				{Name: "species", Label: "Especie", Kind: KindSelect, Rules: "required,oneof=dog cat other",
					Options: statusOptions("dog", "Perro", "cat", "Gato", "other", "Otra")},
				{Name: "vaccinated", Label: "Vacunada", Kind: KindBool},
				{Name: "apartmentId", Label: "Apartamento", Kind: KindNumber, Rules: "required,number"},
			},
		},
		{
			FeatureKey: rbac.FeatureParking, Endpoint: "parking", Title: "Parqueaderos", Singular: "parqueadero",
			Columns: []Column{
				{Key: "code", Label: "Código"},
				{Key: "plate", Label: "Placa"},
				{Key: "apartment", Label: "Apartamento"},
			},
			Fields: []Field{
				{Name: "code", Label: "Código", Kind: KindText, Rules: "required,max=10"},
				{Name: "plate", Label: "Placa", Kind: KindText, Rules: "omitempty,alphanum,max=8"},
				{Name: "apartmentId", Label: "Apartamento", Kind: KindNumber, Rules: "omitempty,number"},
			},
		},
		{
			FeatureKey: rbac.FeatureVisitors, Endpoint: "visitors", Title: "Visitantes", Singular: "visitante",
			Columns: []Column{
				{Key: "fullName", Label: "Nombre"},
				{Key: "document", Label: "Documento"},
				{Key: "apartment", Label: "Destino"},
				{Key: "enteredAt", Label: "Ingreso", Kind: KindDate},
			},
			Fields: []Field{
				{Name: "fullName", Label: "Nombre completo", Kind: KindText, Rules: "required,max=120"},
				{Name: "document", Label: "Documento", Kind: KindText, Rules: "required,alphanum,max=20"},
				{Name: "apartmentId", Label: "Destino", Kind: KindNumber, Rules: "required,number"},
			},
		},
		{
			FeatureKey: rbac.FeatureFacilities, Endpoint: "common-areas", Title: "Zonas comunes", Singular: "zona común",
			Columns: []Column{
				{Key: "name", Label: "Nombre"},
				{Key: "capacity", Label: "Aforo", Kind: KindNumber},
				{Key: "fee", Label: "Tarifa", Kind: KindMoney},
			},
			Fields: []Field{
				{Name: "name", Label: "Nombre", Kind: KindText, Rules: "required,max=60"},
				{Name: "capacity", Label: "Aforo", Kind: KindNumber, Rules: "omitempty,number"},
				{Name: "fee", Label: "Tarifa", Kind: KindMoney, Rules: "omitempty,numeric"},
			},
		},
	}
}
