package schema

// Kind is the kind of an association.
type Kind int

// Association kinds.
const (
	BelongsTo Kind = iota
	HasOne
	HasMany
	BelongsToMany
)

// String returns the association kind name.
func (k Kind) String() string {
	switch k {
	case BelongsTo:
		return "BelongsTo"
	case HasOne:
		return "HasOne"
	case HasMany:
		return "HasMany"
	case BelongsToMany:
		return "BelongsToMany"
	}
	return "Unknown"
}

// An Association links a source model to a target model.
//
// Keys are attribute names; the *Field accessors resolve them to columns
// on the model that owns them.
type Association struct {
	Kind    Kind
	As      string // alias of the association on the source model.
	Source  *Model
	Target  *Model
	Through *Model // join model of BelongsToMany.

	// ForeignKey lives on Source for BelongsTo, on Target for HasOne and
	// HasMany, and on Through (pointing at Source) for BelongsToMany.
	ForeignKey string
	// OtherKey is the Through attribute pointing at Target.
	OtherKey string
	// SourceKey is the Source attribute referenced by the foreign key.
	// Defaults to the source primary key.
	SourceKey string
	// TargetKey is the Target attribute referenced by a BelongsTo or
	// BelongsToMany key. Defaults to the target primary key.
	TargetKey string
}

// WithSourceKey sets the source attribute referenced by the foreign key.
func (a *Association) WithSourceKey(key string) *Association {
	a.SourceKey = key
	return a
}

// WithTargetKey sets the target attribute referenced by the foreign key.
func (a *Association) WithTargetKey(key string) *Association {
	a.TargetKey = key
	return a
}

// IsMulti reports whether the association fans out (HasMany and
// BelongsToMany).
func (a *Association) IsMulti() bool {
	return a.Kind == HasMany || a.Kind == BelongsToMany
}

// Identifier returns the foreign key attribute name.
func (a *Association) Identifier() string {
	return a.ForeignKey
}

// IdentifierField returns the foreign key column.
func (a *Association) IdentifierField() string {
	switch a.Kind {
	case BelongsTo:
		return a.Source.ColumnOf(a.ForeignKey)
	case BelongsToMany:
		return a.Through.ColumnOf(a.ForeignKey)
	}
	return a.Target.ColumnOf(a.ForeignKey)
}

// ForeignIdentifierField returns the through column pointing at the
// target of a BelongsToMany association.
func (a *Association) ForeignIdentifierField() string {
	if a.Through == nil {
		return ""
	}
	return a.Through.ColumnOf(a.OtherKey)
}

// SourceKeyAttribute returns the referenced source attribute name.
func (a *Association) SourceKeyAttribute() string {
	if a.SourceKey != "" {
		return a.SourceKey
	}
	return a.Source.PrimaryKeyAttribute()
}

// SourceKeyField returns the referenced source column.
func (a *Association) SourceKeyField() string {
	return a.Source.ColumnOf(a.SourceKeyAttribute())
}

// TargetKeyAttribute returns the referenced target attribute name.
func (a *Association) TargetKeyAttribute() string {
	if a.TargetKey != "" {
		return a.TargetKey
	}
	return a.Target.PrimaryKeyAttribute()
}

// TargetKeyField returns the referenced target column.
func (a *Association) TargetKeyField() string {
	return a.Target.ColumnOf(a.TargetKeyAttribute())
}
