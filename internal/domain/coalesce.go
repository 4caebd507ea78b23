package domain

// CoalesceStr returns the first non-empty string from vals.
func CoalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// StrPtrOrNil returns nil for an empty string, otherwise a pointer to it.
func StrPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DerefStr returns the pointed-to string or "" for nil.
func DerefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Float64FromPtrWithDefault returns the first non-nil value, or def.
func Float64FromPtrWithDefault(def float64, ptrs ...*float64) float64 {
	for _, p := range ptrs {
		if p != nil {
			return *p
		}
	}
	return def
}
