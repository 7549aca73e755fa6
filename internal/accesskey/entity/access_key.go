package entity

// AccessKey is a one-time invite code required to complete signup.
type AccessKey struct {
	Key  string `db:"key" json:"key"`
	Used bool   `db:"used" json:"used"`
}
