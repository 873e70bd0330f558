package entity

import "fmt"

// Field names a single mutable attribute of a Person or an Address.
// The set is closed; names arriving as data are resolved through ParseField.
type Field string

const (
	FieldFirstName    Field = "FirstName"
	FieldLastName     Field = "LastName"
	FieldPersonalCode Field = "PersonalCode"
	FieldPhoneNumber  Field = "PhoneNumber"
	FieldEmail        Field = "Email"
	FieldCity         Field = "City"
	FieldStreet       Field = "Street"
	FieldHouseNumber  Field = "HouseNumber"
	FieldFlatNumber   Field = "FlatNumber"
)

// Owner identifies the record a Field lives on.
type Owner int

const (
	OwnerPerson Owner = iota + 1
	OwnerAddress
)

func (o Owner) String() string {
	switch o {
	case OwnerPerson:
		return "person"
	case OwnerAddress:
		return "address"
	default:
		return "unknown"
	}
}

type fieldSpec struct {
	owner     Owner
	column    string
	setPerson func(*Person, string)
	setAddr   func(*Address, string)
}

var fieldSpecs = map[Field]fieldSpec{
	FieldFirstName:    {owner: OwnerPerson, column: "first_name", setPerson: func(p *Person, v string) { p.FirstName = v }},
	FieldLastName:     {owner: OwnerPerson, column: "last_name", setPerson: func(p *Person, v string) { p.LastName = v }},
	FieldPersonalCode: {owner: OwnerPerson, column: "personal_code", setPerson: func(p *Person, v string) { p.PersonalCode = &v }},
	FieldPhoneNumber:  {owner: OwnerPerson, column: "phone_number", setPerson: func(p *Person, v string) { p.PhoneNumber = v }},
	FieldEmail:        {owner: OwnerPerson, column: "email", setPerson: func(p *Person, v string) { p.Email = v }},
	FieldCity:         {owner: OwnerAddress, column: "city", setAddr: func(a *Address, v string) { a.City = v }},
	FieldStreet:       {owner: OwnerAddress, column: "street", setAddr: func(a *Address, v string) { a.Street = v }},
	FieldHouseNumber:  {owner: OwnerAddress, column: "house_number", setAddr: func(a *Address, v string) { a.HouseNumber = v }},
	FieldFlatNumber:   {owner: OwnerAddress, column: "flat_number", setAddr: func(a *Address, v string) { a.FlatNumber = v }},
}

// UnknownFieldError reports a field name outside the supported set,
// or a field used against the wrong record.
type UnknownFieldError struct {
	Name  string
	Owner Owner
}

func (e *UnknownFieldError) Error() string {
	if e.Owner != 0 {
		return fmt.Sprintf("Invalid property specified: %s is not a %s field", e.Name, e.Owner)
	}
	return fmt.Sprintf("Invalid property specified: %s", e.Name)
}

// ParseField resolves a field by its exact name.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if _, ok := fieldSpecs[f]; !ok {
		return "", &UnknownFieldError{Name: name}
	}
	return f, nil
}

func (f Field) Owner() Owner { return fieldSpecs[f].owner }

// Column returns the storage column backing the field.
func (f Field) Column() string { return fieldSpecs[f].column }

func (f Field) String() string { return string(f) }

// SetField applies value to the person. The person is left untouched when the field is not a person field.
func (p *Person) SetField(f Field, value string) error {
	spec, ok := fieldSpecs[f]
	if !ok || spec.owner != OwnerPerson {
		return &UnknownFieldError{Name: string(f), Owner: OwnerPerson}
	}
	spec.setPerson(p, value)
	return nil
}

// SetField applies value to the address. The address is left untouched when the field is not an address field.
func (a *Address) SetField(f Field, value string) error {
	spec, ok := fieldSpecs[f]
	if !ok || spec.owner != OwnerAddress {
		return &UnknownFieldError{Name: string(f), Owner: OwnerAddress}
	}
	spec.setAddr(a, value)
	return nil
}

// FieldValue reads the current value of a person field.
func (p *Person) FieldValue(f Field) (string, error) {
	switch f {
	case FieldFirstName:
		return p.FirstName, nil
	case FieldLastName:
		return p.LastName, nil
	case FieldPersonalCode:
		return p.PersonalCodeValue(), nil
	case FieldPhoneNumber:
		return p.PhoneNumber, nil
	case FieldEmail:
		return p.Email, nil
	}
	return "", &UnknownFieldError{Name: string(f), Owner: OwnerPerson}
}

// FieldValue reads the current value of an address field.
func (a *Address) FieldValue(f Field) (string, error) {
	switch f {
	case FieldCity:
		return a.City, nil
	case FieldStreet:
		return a.Street, nil
	case FieldHouseNumber:
		return a.HouseNumber, nil
	case FieldFlatNumber:
		return a.FlatNumber, nil
	}
	return "", &UnknownFieldError{Name: string(f), Owner: OwnerAddress}
}
