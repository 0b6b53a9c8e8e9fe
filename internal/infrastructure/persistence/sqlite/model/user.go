package model

type User struct {
	UserID      string `gorm:"column:user_id;primaryKey"`
	Login       string `gorm:"column:login;type:text;not null;uniqueIndex"`
	DisplayName string `gorm:"column:display_name;type:text;not null"`
}

func (User) TableName() string {
	return "users"
}
