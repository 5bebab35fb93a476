package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	ex "ndx.service/data/extensions"
	dm "ndx.service/data/models"
	sm "ndx.service/models"
)

// AnalysisInput is a validated request with dates resolved
type AnalysisInput struct {
	Sectors []string
	Tickers []string
	Weights map[string]float64
	Start   time.Time
	End     time.Time
}

type Analysis struct {
	Id          string
	Start       time.Time
	End         time.Time
	Selected    []dm.Constituent
	Weights     map[string]float64
	Warnings    []Warning
	Instruments map[string]ReturnSeries
	Portfolio   ReturnSeries
}

func (a *Analysis) Tickers() []string {
	return TickersOf(a.Selected)
}

// ParseAnalysisRequest validates the request and fills in default dates
func (sc *ServiceContext) ParseAnalysisRequest(req sm.AnalysisRequest) (AnalysisInput, error) {
	if err := sc.validate.Struct(req); err != nil {
		return AnalysisInput{}, &InvalidRequestError{Err: describeValidation(err)}
	}

	in := AnalysisInput{
		Sectors: req.Sectors,
		Tickers: req.Tickers,
		Weights: make(map[string]float64, len(req.Weights)),
		Start:   sc.Settings.DefaultStart,
		End:     ex.DateOnly(sc.today()),
	}

	for t, w := range req.Weights {
		in.Weights[strings.ToUpper(strings.TrimSpace(t))] = w
	}

	if req.Start != "" {
		d, err := ex.ParseShort(req.Start)
		if err != nil {
			return AnalysisInput{}, &InvalidRequestError{Err: err}
		}
		in.Start = d
	}
	if req.End != "" {
		d, err := ex.ParseShort(req.End)
		if err != nil {
			return AnalysisInput{}, &InvalidRequestError{Err: err}
		}
		in.End = d
	}

	return in, nil
}

// RunAnalysis resolves the selection against the reference table, fetches prices and
// computes per instrument and portfolio cumulative returns
func (sc *ServiceContext) RunAnalysis(ctx context.Context, in AnalysisInput) (*Analysis, error) {
	start := time.Now()
	in.Start, in.End = ex.DateOnly(in.Start), ex.DateOnly(in.End)
	res := &Analysis{Id: uuid.NewString(), Start: in.Start, End: in.End}
	logger := log.DefaultLogger
	logger.Context = log.NewContext(nil).Str("run_id", res.Id).Value()

	logger.Info().Strs("sectors", in.Sectors).Strs("tickers", in.Tickers).Msg("received analysis request")
	if len(in.Sectors) == 0 {
		return nil, &MissingSelectionError{Prompt: PromptSelectSector}
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("loading reference data")
	table, err := sc.Reference.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("error loading reference data")
		return nil, err
	}

	res.Selected = SelectTickers(FilterBySector(table, in.Sectors), in.Tickers)
	if len(res.Selected) == 0 {
		return nil, &MissingSelectionError{Prompt: PromptSelectTickers}
	}
	tickers := res.Tickers()

	if in.Start.After(in.End) {
		logger.Info().Str("start", ex.FmtShort(in.Start)).Str("end", ex.FmtShort(in.End)).Msg("start is after end, returning empty series")
		res.Instruments = make(map[string]ReturnSeries, len(tickers))
		for _, t := range tickers {
			res.Instruments[t] = ReturnSeries{}
		}
		res.Portfolio = ReturnSeries{}
		return res, nil
	}

	logger.Info().Strs("tickers", tickers).Dur("elapsed", time.Since(start)).Msg("fetching prices")
	pm, err := sc.Prices.PriceMatrix(ctx, tickers, in.Start, in.End)
	if err != nil {
		logger.Error().Err(err).Msg("error fetching prices")
		return nil, err
	}

	logger.Info().Int("dates", pm.Len()).Dur("elapsed", time.Since(start)).Msg("computing returns")
	res.Instruments = InstrumentReturns(pm, in.Start, in.End)

	weights := sc.requestWeights(tickers, in.Weights)
	res.Portfolio, res.Warnings, err = sc.Engine.PortfolioReturns(pm, weights, in.Start, in.End)
	if err != nil {
		logger.Error().Err(err).Msg("error computing portfolio returns")
		return nil, err
	}

	if len(tickers) > 1 {
		w, _ := NormalizeWeights(tickers, weights, sc.Engine.WeightTolerance)
		res.Weights = WeightMap(tickers, w)
	}

	for _, w := range res.Warnings {
		logger.Warn().Str("code", w.Code()).Msg(w.Error())
	}

	logger.Info().Float64("final_return", res.Portfolio.Final()).Dur("elapsed", time.Since(start)).Msg("analysis completed")
	return res, nil
}

// requestWeights gives selected tickers without a weight the default weight
func (sc *ServiceContext) requestWeights(tickers []string, weights map[string]float64) map[string]float64 {
	res := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		w, ok := weights[t]
		if !ok {
			w = sc.Settings.DefaultWeight
		}
		res[t] = w
	}
	return res
}

func buildAnalysisResponse(a *Analysis) *sm.AnalysisResponse {
	final := a.Portfolio.Final()

	res := &sm.AnalysisResponse{
		Id:              a.Id,
		Start:           ex.FmtShort(a.Start),
		End:             ex.FmtShort(a.End),
		Tickers:         a.Tickers(),
		Selected:        a.Selected,
		Weights:         a.Weights,
		Instruments:     make(map[string][]sm.SeriesPoint, len(a.Instruments)),
		Portfolio:       seriesPoints(a.Portfolio),
		FinalReturn:     final,
		FinalReturnText: sm.FormatPercent(final),
		Summary:         sm.FormatSummary(final),
	}

	for t, s := range a.Instruments {
		res.Instruments[t] = seriesPoints(s)
	}

	for _, w := range a.Warnings {
		res.Warnings = append(res.Warnings, sm.WarningResponse{Code: w.Code(), Message: w.Error()})
	}

	return res
}

func seriesPoints(rs ReturnSeries) []sm.SeriesPoint {
	res := make([]sm.SeriesPoint, len(rs))
	for i, p := range rs {
		res[i] = sm.SeriesPoint{Date: ex.FmtShort(p.Date), Value: p.Value}
	}
	return res
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
