package memory

// compressionTables is the allow-list of tables carrying a compression_level
// column. Table names reach SQL only through this map.
var compressionTables = map[string]Category{
	"attributes": CategoryAttributes,
	"episodes":   CategoryEpisodes,
	"memories":   CategoryEpisodes,
	"goals":      CategoryGoals,
}

// CompressionTable validates a table identifier for the compression level
// operations.
func CompressionTable(table string) (Category, error) {
	c, ok := compressionTables[table]
	if !ok {
		return "", &ValidationError{Field: "compression table", Value: table}
	}
	return c, nil
}

// ValidateCompressionLevel checks a level is within 0..MaxCompressionLevel.
func ValidateCompressionLevel(level int) error {
	if level < 0 || level > MaxCompressionLevel {
		return &ValidationError{Field: "compression level", Value: level}
	}
	return nil
}

// CheckCompressionTransition validates a monotonic transition from current
// to next.
func CheckCompressionTransition(current, next int) error {
	if err := ValidateCompressionLevel(next); err != nil {
		return err
	}
	if next < current {
		return ErrCompressionRegression
	}
	return nil
}
