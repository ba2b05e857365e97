package record

// Record keys

// Keyspace (namespace-scoped):
// - ns/{ns}/rec/{id}/meta
// - ns/{ns}/rec/{id}/props
// - ns/{ns}/rec/ (prefix for listing)

var (
	nsPrefix    = []byte("ns/")
	recSeg      = []byte("/rec/")
	metaSuffix  = []byte("/meta")
	propsSuffix = []byte("/props")
)

func metaKey(ns, id string) []byte {
	// ns/{ns}/rec/{id}/meta
	b := make([]byte, 0, len(ns)+len(id)+15)
	b = append(b, nsPrefix...)
	b = append(b, ns...)
	b = append(b, recSeg...)
	b = append(b, id...)
	b = append(b, metaSuffix...)
	return b
}

func propsKey(ns, id string) []byte {
	// ns/{ns}/rec/{id}/props
	b := make([]byte, 0, len(ns)+len(id)+15)
	b = append(b, nsPrefix...)
	b = append(b, ns...)
	b = append(b, recSeg...)
	b = append(b, id...)
	b = append(b, propsSuffix...)
	return b
}

func recPrefix(ns string) []byte {
	// ns/{ns}/rec/
	b := make([]byte, 0, len(ns)+10)
	b = append(b, nsPrefix...)
	b = append(b, ns...)
	b = append(b, recSeg...)
	return b
}
