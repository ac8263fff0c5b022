package entities

import "time"

// UserProfile holds the display fields looked up when a user joins a room
type UserProfile struct {
	UserID    string    `json:"user_id" gorm:"type:varchar(128);primary_key"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	Role      string    `json:"role" gorm:"type:varchar(100)"`
	Activity  string    `json:"activity" gorm:"type:varchar(100)"`
	AvatarURL *string   `json:"avatar_url,omitempty" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserProfile
func (UserProfile) TableName() string {
	return "user_profiles"
}

// ToProfile converts the stored row into display metadata
func (u *UserProfile) ToProfile() Profile {
	p := Profile{
		Name:     u.Name,
		Role:     u.Role,
		Activity: u.Activity,
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	return p
}
