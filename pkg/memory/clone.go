package memory

func cloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	clone := *doc
	if doc.Vector != nil {
		clone.Vector = append([]float32(nil), doc.Vector...)
	}
	if doc.Metadata != nil {
		clone.Metadata = make(map[string]string, len(doc.Metadata))
		for key, value := range doc.Metadata {
			clone.Metadata[key] = value
		}
	}
	return &clone
}
