package model

// Notification is a platform notification thread together with the index of
// the read credential that observed it. Marking a thread read is only valid
// against the credential that listed it, so the index travels with the value.
type Notification struct {
	ID           string
	ReadClientID int
}
