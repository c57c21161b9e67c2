package domain

type Permission struct {
	Name        string `gorm:"primaryKey;size:64" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

type RolePermission struct {
	RoleName       string `gorm:"primaryKey;size:64" json:"role_name"`
	PermissionName string `gorm:"primaryKey;size:64" json:"permission_name"`
}
