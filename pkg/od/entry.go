package od

// Entry is one index-addressed slot of the Object Dictionary. It wraps
// either a single Variable (VAR) or a VariableList (ARRAY/RECORD),
// mirroring the teacher's pkg/od.Entry any-typed object field.
type Entry struct {
	Index      uint16
	Name       string
	ObjectType ObjectType
	object     any
}

// NewVarEntry wraps a single Variable as a VAR entry.
func NewVarEntry(index uint16, name string, v *Variable) *Entry {
	return &Entry{Index: index, Name: name, ObjectType: ObjectTypeVAR, object: v}
}

// NewListEntry wraps a VariableList as an ARRAY or RECORD entry,
// depending on list.ObjectType.
func NewListEntry(index uint16, name string, list *VariableList) *Entry {
	return &Entry{Index: index, Name: name, ObjectType: list.ObjectType, object: list}
}

// SubIndex returns the Variable at the given subindex. VAR entries only
// accept subindex 0.
func (e *Entry) SubIndex(subIndex uint8) (*Variable, error) {
	switch obj := e.object.(type) {
	case *Variable:
		if subIndex != 0 {
			return nil, ErrSubNotExist
		}
		return obj, nil
	case *VariableList:
		return obj.GetSubObject(subIndex)
	default:
		return nil, ErrGeneral
	}
}

// SubCount returns the number of addressable subindices.
func (e *Entry) SubCount() int {
	switch obj := e.object.(type) {
	case *Variable:
		return 1
	case *VariableList:
		return len(obj.Variables)
	default:
		return 0
	}
}

// List returns the underlying VariableList, or nil if this is a VAR entry.
func (e *Entry) List() *VariableList {
	l, _ := e.object.(*VariableList)
	return l
}

// Variable returns the underlying Variable, or nil if this is an
// ARRAY/RECORD entry.
func (e *Entry) Variable() *Variable {
	v, _ := e.object.(*Variable)
	return v
}
