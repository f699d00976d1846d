package crash

// RawRecord is one untyped row as returned by the SODA API. Values are
// usually strings but may be numbers or nested objects (e.g. geocoded
// points).
type RawRecord map[string]any
