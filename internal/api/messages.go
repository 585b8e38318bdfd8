package api

import (
	"net/http"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

// User-facing messages. The client UI is in Spanish.
const (
	msgRoot          = "PDF to XLSX Converter API"
	msgDeleted       = "Archivo eliminado correctamente"
	msgMissingFile   = "Debe adjuntar un archivo en el campo 'file'"
	msgInternalError = "Error interno, inténtelo de nuevo más tarde"
)

var kindMessages = map[models.ErrorKind]string{
	models.KindInvalidFileType:   "Solo se permiten archivos PDF",
	models.KindTooLarge:          "El archivo excede el límite de 10MB",
	models.KindEmptyUpload:       "El archivo está vacío",
	models.KindUnparsablePDF:     "No se pudo leer el PDF",
	models.KindEmptyDocument:     "No se encontraron datos en el PDF",
	models.KindExtractionTimeout: "El PDF tardó demasiado en procesarse",
	models.KindNotFound:          "Archivo no encontrado",
}

// statusFor maps an error to its HTTP status and user message. Unknown
// errors become a generic 500.
func statusFor(err error) (int, string) {
	kind := models.KindOf(err)
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound, kindMessages[kind]
	case models.KindInvalidFileType, models.KindTooLarge, models.KindEmptyUpload,
		models.KindUnparsablePDF, models.KindEmptyDocument, models.KindExtractionTimeout:
		return http.StatusBadRequest, kindMessages[kind]
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}
