package types

import "slices"

// personFields are the profile fields stored on people.
var personFields = []string{
	"prefix",
	"first_name",
	"last_name",
	"suffix",
	"title",
	"title_secondary",
	"office",
	"email",
	"phone",
}

// Fields returns the profile field names t accepts. Only people carry
// profile fields.
func Fields(t ObjectType) []string {
	if t == TypePerson {
		return slices.Clone(personFields)
	}
	return nil
}

// HasField reports whether t accepts the profile field name.
func HasField(t ObjectType, name string) bool {
	return t == TypePerson && slices.Contains(personFields, name)
}

// FieldAttr returns the attribute key of profile field name on type t,
// e.g. "_person_last_name".
func FieldAttr(t ObjectType, name string) string {
	return "_" + t.Slug() + "_" + name
}
