package core

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// EngineSettings are the request defaults applied before the engine runs
type EngineSettings struct {
	WeightTolerance float64
	WeightStep      float64
	DefaultWeight   float64
	DefaultStart    time.Time
}

type ServiceContext struct {
	Context   context.Context
	Reference *ReferenceCache
	Prices    *PriceService
	Engine    ReturnEngine
	Settings  EngineSettings

	validate *validator.Validate
	today    func() time.Time
}

func NewServiceContext(ctx context.Context, reference *ReferenceCache, prices *PriceService, settings EngineSettings) *ServiceContext {
	return &ServiceContext{
		Context:   ctx,
		Reference: reference,
		Prices:    prices,
		Engine:    NewReturnEngine(settings.WeightTolerance),
		Settings:  settings,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		today:     time.Now,
	}
}
