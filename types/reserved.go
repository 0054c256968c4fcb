package types

var reservedTypeNames = []string{
	"size",
	"index",
	"stride",
	"bool",
	"i8",
	"ui8",
	"i16",
	"ui16",
	"i32",
	"ui32",
	"f16",
	"f32",
	"f64",
	"R",
}

var reservedTypeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedTypeNames))
	for _, t := range reservedTypeNames {
		m[t] = struct{}{}
	}
	return m
}()

// ReservedTypeNames returns a copy of source-level reserved type names.
func ReservedTypeNames() []string {
	return append([]string(nil), reservedTypeNames...)
}

// IsReservedTypeName reports whether name is reserved for built-in scalar types.
func IsReservedTypeName(name string) bool {
	_, ok := reservedTypeSet[name]
	return ok
}
