package activity

// MeetsLevelRequirement reports whether every constrained attribute is strictly
// above its threshold. An empty requirement always passes.
func MeetsLevelRequirement(attrs AttributeReader, req Requirements) bool {
	for key, threshold := range req {
		if attrs.Attribute(key) <= threshold {
			return false
		}
	}
	return true
}
