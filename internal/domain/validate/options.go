package validate

// Option applies a configuration option to the FieldValidator.
type Option func(*FieldValidator)

// WithKeyField sets the designated partition key field name.
func WithKeyField(field string) Option {
	return func(v *FieldValidator) {
		if field != "" {
			v.keyField = field
		}
	}
}
