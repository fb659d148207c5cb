package cache

// Cache keys for the static GTFS datasets. Keys are combined with the
// client-level prefix, so "routes" is stored as "porto:routes".
const (
	KeyRoutes      = "routes"
	KeyStops       = "stops"
	KeyServiceDays = "service_days"
)
