package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// Dispatch decodes a request envelope, runs the named operation and wraps the
// outcome in a response envelope. It never fails; errors travel in the
// response.
func (s *Service) Dispatch(ctx context.Context, req models.Request) models.Response {
	resp := models.Response{ID: req.ID, Operation: req.Operation}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		resp.Error = &models.ErrorBody{Type: errors.TypeOf(err).String(), Message: err.Error()}
	} else {
		resp.Result = result
	}
	resp.Timestamp = time.Now().UTC()
	return resp
}

func (s *Service) dispatch(ctx context.Context, req models.Request) (interface{}, error) {
	switch req.Operation {
	case models.OperationPrice:
		var c models.OptionContract
		if err := decode(req.Payload, &c); err != nil {
			return nil, err
		}
		return s.Price(ctx, c)
	case models.OperationGreeks:
		var c models.OptionContract
		if err := decode(req.Payload, &c); err != nil {
			return nil, err
		}
		return s.Greeks(ctx, c)
	case models.OperationImpliedVolatility:
		var r models.ImpliedVolatilityRequest
		if err := decode(req.Payload, &r); err != nil {
			return nil, err
		}
		return s.ImpliedVolatility(ctx, r)
	case models.OperationSimulate:
		var r models.SimulateRequest
		if err := decode(req.Payload, &r); err != nil {
			return nil, err
		}
		return s.Simulate(ctx, r)
	case models.OperationEstimate:
		var r models.EstimateRequest
		if err := decode(req.Payload, &r); err != nil {
			return nil, err
		}
		return s.Estimate(ctx, r)
	case models.OperationRiskSummary:
		var r models.RiskSummaryRequest
		if err := decode(req.Payload, &r); err != nil {
			return nil, err
		}
		return s.RiskSummary(ctx, r)
	case models.OperationRiskReport:
		var r models.RiskReportRequest
		if err := decode(req.Payload, &r); err != nil {
			return nil, err
		}
		return s.RiskReport(ctx, r)
	default:
		return nil, errors.InvalidArgumentf("unknown operation %q", req.Operation)
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return errors.InvalidArgument("payload is required")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.InvalidArgumentf("malformed payload: %v", err)
	}
	return nil
}
