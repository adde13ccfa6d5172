package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voiceforge/voiceforge/dsp/pipeline"
	"github.com/voiceforge/voiceforge/internal/platform/errors"
	"github.com/voiceforge/voiceforge/internal/storage"
)

const outputFilename = "voiceforge-output.wav"

// Service implements the API handlers.
type Service struct {
	store          *storage.Store
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewService wires the conversion handlers to a job store.
func NewService(store *storage.Store, logger *slog.Logger, maxUploadBytes int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:          store,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health reports service liveness.
func (s *Service) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Convert accepts a multipart upload plus voice settings, renders the
// transformed WAV and records a render job either way.
func (s *Service) Convert(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file"})
		return
	}
	if s.maxUploadBytes > 0 && fileHeader.Size > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}

	settings, err := settingsFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	consent, err := strconv.ParseBool(c.DefaultPostForm("consent", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consent value"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	filename := fileHeader.Filename
	if filename == "" {
		filename = "upload"
	}

	out, err := pipeline.Transform(data, settings)
	if err != nil {
		s.recordJob(c, filename, storage.StatusFailed, consent)

		if errors.IsKind(err, errors.KindDecode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported or corrupt audio"})
			return
		}
		s.logger.Error("transform failed",
			"error", err,
			"request_id", c.GetString("request_id"),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	s.recordJob(c, filename, storage.StatusCompleted, consent)

	c.Header("Content-Disposition", `attachment; filename=`+outputFilename)
	c.Data(http.StatusOK, "audio/wav", out)
}

// recordJob inserts the side-channel render job row. Failures are logged
// but never fail the conversion response.
func (s *Service) recordJob(c *gin.Context, filename, status string, consent bool) {
	if s.store == nil {
		return
	}

	job := &storage.RenderJob{
		Filename:         filename,
		Status:           status,
		ConsentConfirmed: consent,
	}
	if err := s.store.CreateRenderJob(job); err != nil {
		s.logger.Error("recording render job",
			"error", err,
			"request_id", c.GetString("request_id"),
		)
	}
}

func settingsFromForm(c *gin.Context) (pipeline.VoiceSettings, error) {
	settings := pipeline.DefaultSettings()

	fields := []struct {
		name string
		dst  *float64
	}{
		{"pitch", &settings.Pitch},
		{"timbre", &settings.Timbre},
		{"depth", &settings.Depth},
		{"speed", &settings.Speed},
		{"emotion", &settings.Emotion},
		{"morph", &settings.Morph},
		{"noiseReduction", &settings.NoiseReduction},
		{"clarity", &settings.Clarity},
	}

	for _, f := range fields {
		raw := c.PostForm(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return settings, errors.New(errors.KindTransport, "convert.form",
				"invalid value for "+f.name)
		}
		*f.dst = v
	}

	return settings, nil
}
