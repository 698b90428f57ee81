package models

// Student is a person who can be enrolled in zero or more courses.
type Student struct {
	ID        int64  `db:"id" json:"id" yaml:"id"`
	FirstName string `db:"first_name" json:"first_name" yaml:"first_name" validate:"required"`
	LastName  string `db:"last_name" json:"last_name" yaml:"last_name" validate:"required"`
	Age       int    `db:"age" json:"age" yaml:"age" validate:"gte=0"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Row converts the student into a column map. The ID is always store-assigned on insert.
func (s Student) Row() map[string]interface{} {
	return map[string]interface{}{
		"first_name": s.FirstName,
		"last_name":  s.LastName,
		"age":        s.Age,
	}
}
