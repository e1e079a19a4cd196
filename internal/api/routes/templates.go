// filename: internal/api/routes/templates.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sserrors "github.com/sigscope/sigscope/internal/common/errors"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/common/pg"
	"github.com/sigscope/sigscope/internal/decoder"
)

// TemplatesHandler обработчик управления шаблонами и определениями IE // v1.0
type TemplatesHandler struct {
	logger  *logging.Logger
	decoder *decoder.Decoder
	store   *pg.TemplateStore
}

// NewTemplatesHandler создает новый обработчик шаблонов. Хранилище
// опционально: при nil шаблоны живут только в памяти процесса // v1.0
func NewTemplatesHandler(logger *logging.Logger, d *decoder.Decoder, store *pg.TemplateStore) *TemplatesHandler {
	return &TemplatesHandler{
		logger:  logger,
		decoder: d,
		store:   store,
	}
}

// GetTemplates возвращает список поддерживаемых типов сообщений // v1.0
func (h *TemplatesHandler) GetTemplates(c *gin.Context) {
	types := h.decoder.SupportedMessageTypes()
	c.JSON(http.StatusOK, gin.H{
		"message_types": types,
		"count":         len(types),
	})
}

// CreateTemplate регистрирует пользовательский шаблон сообщения // v1.0
func (h *TemplatesHandler) CreateTemplate(c *gin.Context) {
	var template decoder.MessageTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid template body",
			"message": err.Error(),
		})
		return
	}

	if err := h.decoder.AddTemplate(&template); err != nil {
		respondError(c, sserrors.Wrap(err, sserrors.ErrorCodeTemplateInvalid, err.Error()))
		return
	}

	// Сохранение в PostgreSQL не отменяет регистрацию в памяти
	if h.store != nil {
		if err := h.store.SaveTemplate(c.Request.Context(), &template); err != nil {
			h.logger.WithError(err).WithField("message_type", template.MessageType).
				Warn("Failed to persist template")
		}
	}

	h.logger.WithMessage(template.MessageType, string(template.Protocol)).
		Info("Custom template registered")

	c.JSON(http.StatusCreated, gin.H{
		"status":       "registered",
		"message_type": template.MessageType,
	})
}

// GetIEDefinitions возвращает все определения информационных элементов // v1.0
func (h *TemplatesHandler) GetIEDefinitions(c *gin.Context) {
	definitions := h.decoder.IEDefinitions()
	c.JSON(http.StatusOK, gin.H{
		"ie_definitions": definitions,
		"count":          len(definitions),
	})
}

// CreateIEDefinition регистрирует пользовательское определение IE // v1.0
func (h *TemplatesHandler) CreateIEDefinition(c *gin.Context) {
	var ie decoder.IEDefinition
	if err := c.ShouldBindJSON(&ie); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid IE definition body",
			"message": err.Error(),
		})
		return
	}

	if err := h.decoder.AddIEDefinition(&ie); err != nil {
		respondError(c, sserrors.Wrap(err, sserrors.ErrorCodeIEInvalid, err.Error()))
		return
	}

	if h.store != nil {
		if err := h.store.SaveIEDefinition(c.Request.Context(), &ie); err != nil {
			h.logger.WithError(err).WithField("ie_name", ie.Name).
				Warn("Failed to persist IE definition")
		}
	}

	h.logger.WithField("ie_name", ie.Name).Info("Custom IE definition registered")

	c.JSON(http.StatusCreated, gin.H{
		"status": "registered",
		"name":   ie.Name,
	})
}

// respondError отправляет ошибку клиенту с подходящим HTTP статусом // v1.0
func respondError(c *gin.Context, err error) {
	if scopeErr, ok := err.(*sserrors.SigScopeError); ok {
		c.JSON(scopeErr.StatusCode, gin.H{
			"error":   string(scopeErr.Code),
			"message": scopeErr.Message,
			"details": scopeErr.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   string(sserrors.ErrorCodeInternal),
		"message": err.Error(),
	})
}
