package domain

// Config is the reservation settings injected into the usecases at construction.
type Config struct {
	AdminEmail    string
	ItemTypeKey   string
	EventTypeKey  string
	RelationField string
	SiteName      string
}
