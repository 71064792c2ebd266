package valueobject

// MediaKind - тип вложения заявки.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Folder - каталог хранилища для вложений этого типа.
func (k MediaKind) Folder() string {
	return string(k) + "s"
}
