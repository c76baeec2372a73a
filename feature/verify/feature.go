package verify

import (
	"github.com/gofiber/fiber/v2"
)

// Feature wraps the verify checks for the feature loader.
type Feature struct {
	service *Service
}

// NewFeature creates the loadable verify feature.
func NewFeature(service *Service) *Feature {
	return &Feature{service: service}
}

func (f *Feature) Name() string { return "verify" }

func (f *Feature) IsEnabled() bool { return true }

func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
