package domain

// Row is an untyped record exactly as decoded from an API page.
// Numbers are kept as json.Number so integers survive decoding.
type Row map[string]any
