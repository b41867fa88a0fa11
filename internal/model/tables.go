package model

// Table names in the row store.
const (
	TableItems         = "Items"
	TableDeliveries    = "Deliveries"
	TableCheckouts     = "Checkouts"
	TableOrders        = "Orders"
	TableSettings      = "Settings"
	TableDeleteLog     = "DeleteLog"
	TablePendingNotifs = "PendingNotifications"
)

// Column order of each table. The names double as JSON field names.
var (
	ItemHeader      = []string{"id", "name", "cat", "qty", "unit", "loc", "minQty", "img", "desc", "status", "usedBy", "serial"}
	DeliveryHeader  = []string{"id", "item", "qty", "unit", "from", "receivedBy", "date", "tracking", "status"}
	CheckoutHeader  = []string{"id", "itemId", "item", "user", "out", "ret", "status"}
	OrderHeader     = []string{"id", "item", "qty", "unit", "requestedBy", "reason", "urgency", "date", "status", "price", "link", "cat", "store"}
	SettingHeader   = []string{"key", "value"}
	DeleteLogHeader = []string{"date", "type", "name", "details", "deletedBy"}
	PendingHeader   = []string{"date", "icon", "title", "body", "fields"}
)

// Headers maps every table to its column order.
var Headers = map[string][]string{
	TableItems:         ItemHeader,
	TableDeliveries:    DeliveryHeader,
	TableCheckouts:     CheckoutHeader,
	TableOrders:        OrderHeader,
	TableSettings:      SettingHeader,
	TableDeleteLog:     DeleteLogHeader,
	TablePendingNotifs: PendingHeader,
}

// Date layouts used in cells.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Reserved settings keys.
const (
	SettingAdmins    = "admins"
	SettingSlackMode = "slack_mode"
)
