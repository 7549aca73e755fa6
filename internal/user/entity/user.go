package entity

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	// DefaultReferral is stored when signup omits the referral field.
	DefaultReferral = "null"
)

// User represents an account row in the `users` table.
// Password holds the bcrypt hash, never the submitted plaintext.
type User struct {
	ID        int64  `db:"id"`
	Fullname  string `db:"fullname"`
	Username  string `db:"username"`
	Email     string `db:"email"`
	Phone     string `db:"phone"`
	AccessKey string `db:"access_key"`
	Referral  string `db:"referral"`
	Password  string `db:"password"`
	Role      string `db:"role"`
}

// IsAdmin reports whether the account unlocks admin routes.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
