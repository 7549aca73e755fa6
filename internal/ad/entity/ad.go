package entity

// Ad is a user-submitted image and description paid for out of task earnings.
type Ad struct {
	ID          int64  `db:"id"`
	UserEmail   string `db:"user_email"`
	ImageURL    string `db:"image_url"`
	Description string `db:"description"`
	Cost        int64  `db:"cost"`
}
