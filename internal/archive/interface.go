package archive

// ArchiveInterface defines the contract for storing digest documents
type ArchiveInterface interface {
	Store(filename string, data []byte) error
}
