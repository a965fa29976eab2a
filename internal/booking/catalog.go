package booking

// AddonService is an optional extra a hotel guest can add to a stay.
type AddonService struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// TicketType is a cenote entry option. Tickets are identified by Key, never by price.
type TicketType struct {
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Catalog holds the fixed price lists a form session prices against.
type Catalog struct {
	Addons  []AddonService `json:"addons"`
	Tickets []TicketType   `json:"tickets"`
}

const (
	TicketGeneral = "general"
	TicketSnorkel = "snorkel"
)

func DefaultCatalog() Catalog {
	return Catalog{
		Addons: []AddonService{
			{Name: "Tour Romántico", Price: 1500},
			{Name: "Paquete Luna de Miel", Price: 3500},
			{Name: "Acceso a Spa", Price: 800},
		},
		Tickets: []TicketType{
			{Key: TicketGeneral, Name: "Acceso General", Price: 450},
			{Key: TicketSnorkel, Name: "Acceso con Snorkel", Price: 650},
		},
	}
}

func (c Catalog) Addon(name string) (AddonService, bool) {
	for _, a := range c.Addons {
		if a.Name == name {
			return a, true
		}
	}
	return AddonService{}, false
}

func (c Catalog) Ticket(key string) (TicketType, bool) {
	for _, t := range c.Tickets {
		if t.Key == key {
			return t, true
		}
	}
	return TicketType{}, false
}
