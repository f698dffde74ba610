package router

// Wire message type discriminators.
const (
	TypeID       = "ID"
	TypeUsername = "USERNAME"
	TypeInfo     = "INFO"
	TypeUserlist = "userlist"
)

// Result codes carried on outbound notices.
const (
	CodeInfoAck      = 1001
	CodeNameChanged  = 3001
	CodeNameConflict = 4001
)

// IDNotice tells a freshly accepted client its identifier.
type IDNotice struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// UsernameResult reports the outcome of a rename request to the requester.
type UsernameResult struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Code int    `json:"code"`
	Info string `json:"info"`
}

// InfoAck acknowledges a diagnostic report.
type InfoAck struct {
	Type string `json:"type"`
	Code int    `json:"code"`
	Info string `json:"info"`
}

// RosterNotice carries the current display names, in registration order, to
// every connected client.
type RosterNotice struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}
