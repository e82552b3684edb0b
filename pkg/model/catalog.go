package model

const (
	UserTypeClient = "Cliente"
	UserTypeAdmin  = "Admin"
)

type Service struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"duration_min"`
}

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
	Type     string `json:"type"`
}

func (u *User) IsClient() bool {
	return u.Type == UserTypeClient
}

func (u *User) IsStaff() bool {
	return u.Type == UserTypeAdmin
}
