package usecase

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/territory-service/internal/domain"
	"github.com/territory-service/internal/pkg/errors"
	"github.com/territory-service/internal/pkg/geometry"
	"github.com/territory-service/internal/pkg/metrics"
)

// Настраиваемые константы детекции зданий
const (
	// DefaultLotSizeM2 - средняя площадь жилого участка
	DefaultLotSizeM2 = 150.0
	// DefaultSyntheticHouseStart - первый номер дома-заглушки
	DefaultSyntheticHouseStart = 65
	// DefaultMaxMatchDistanceM - допустимое расстояние от точки до геокодированного адреса
	DefaultMaxMatchDistanceM = 50.0
	// DefaultAttemptsMultiplier - лимит попыток выборки относительно оценки числа зданий
	DefaultAttemptsMultiplier = 3
	// DefaultMaxBlockAreaKm2 - максимальная площадь блока для детекции зданий.
	// Блок сетки 6x6 на территории предельной площади (50 км²) меньше этого значения.
	DefaultMaxBlockAreaKm2 = 2.0
)

// верхняя граница предварительного выделения под здания блока
const maxBuildingsPrealloc = 1024

// Пороги площади (км²) для выбора размера сетки
var gridThresholds = []struct {
	maxAreaKm2 float64
	size       int
}{
	{0.1, 2},
	{0.3, 3},
	{0.8, 4},
	{2.0, 5},
}

const maxGridSize = 6

// GridOptions - параметры детекции зданий
type GridOptions struct {
	LotSizeM2           float64
	SyntheticHouseStart int
	MaxMatchDistanceM   float64
	AttemptsMultiplier  int
	MaxBlockAreaKm2     float64
	// Seed != 0 делает джиттер воспроизводимым (для каждого блока свой поток)
	Seed uint64
}

// DefaultGridOptions возвращает значения по умолчанию
func DefaultGridOptions() GridOptions {
	return GridOptions{
		LotSizeM2:           DefaultLotSizeM2,
		SyntheticHouseStart: DefaultSyntheticHouseStart,
		MaxMatchDistanceM:   DefaultMaxMatchDistanceM,
		AttemptsMultiplier:  DefaultAttemptsMultiplier,
		MaxBlockAreaKm2:     DefaultMaxBlockAreaKm2,
	}
}

// GridUseCase - разбиение территории на блоки и детекция зданий в блоке
type GridUseCase struct {
	oracle     geometry.Oracle
	estimators []BuildingEstimator
	opts       GridOptions
	logger     *zap.Logger
}

// NewGridUseCase проверяет наличие геометрического движка один раз при создании.
// Без estimators используется только SyntheticEstimator.
func NewGridUseCase(
	oracle geometry.Oracle,
	estimators []BuildingEstimator,
	opts GridOptions,
	logger *zap.Logger,
) (*GridUseCase, error) {
	if oracle == nil {
		return nil, errors.ErrGeometryUnavailable
	}

	def := DefaultGridOptions()
	if opts.LotSizeM2 <= 0 {
		opts.LotSizeM2 = def.LotSizeM2
	}
	if opts.SyntheticHouseStart <= 0 {
		opts.SyntheticHouseStart = def.SyntheticHouseStart
	}
	if opts.MaxMatchDistanceM <= 0 {
		opts.MaxMatchDistanceM = def.MaxMatchDistanceM
	}
	if opts.AttemptsMultiplier <= 0 {
		opts.AttemptsMultiplier = def.AttemptsMultiplier
	}
	if opts.MaxBlockAreaKm2 <= 0 {
		opts.MaxBlockAreaKm2 = def.MaxBlockAreaKm2
	}
	if len(estimators) == 0 {
		estimators = []BuildingEstimator{NewSyntheticEstimator(opts.SyntheticHouseStart)}
	}

	return &GridUseCase{
		oracle:     oracle,
		estimators: estimators,
		opts:       opts,
		logger:     logger,
	}, nil
}

// ChooseGridSize - N для сетки N×N по плоской оценке площади
func (uc *GridUseCase) ChooseGridSize(bounds domain.Bounds) int {
	area := geometry.ApproximateAreaKm2(bounds)
	for _, t := range gridThresholds {
		if area < t.maxAreaKm2 {
			return t.size
		}
	}
	return maxGridSize
}

// GenerateBlocks делит прямоугольник границ на N×N блоков. Ряды идут с юга на север,
// колонки с запада на восток, нумерация с 1.
func (uc *GridUseCase) GenerateBlocks(name string, bounds domain.Bounds) []domain.GridBlock {
	n := uc.ChooseGridSize(bounds)
	latStep := (bounds.North - bounds.South) / float64(n)
	lngStep := (bounds.East - bounds.West) / float64(n)

	blocks := make([]domain.GridBlock, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			b := domain.Bounds{
				South: bounds.South + float64(row)*latStep,
				North: bounds.South + float64(row+1)*latStep,
				West:  bounds.West + float64(col)*lngStep,
				East:  bounds.West + float64(col+1)*lngStep,
			}
			// последние ряд/колонка упираются ровно в исходные границы
			if row == n-1 {
				b.North = bounds.North
			}
			if col == n-1 {
				b.East = bounds.East
			}

			number := row*n + col + 1
			blocks = append(blocks, domain.GridBlock{
				ID:            name + "-block-" + strconv.Itoa(number),
				Number:        number,
				TerritoryName: name,
				Coordinates:   geometry.RectangleRing(b),
				Center:        b.Center(),
				Bounds:        b,
				AreaKm2:       geometry.ApproximateAreaKm2(b),
			})
		}
	}

	return blocks
}

// Subdivide проверяет кольцо территории и разбивает её на блоки
func (uc *GridUseCase) Subdivide(name string, ring orb.Ring) ([]domain.GridBlock, error) {
	ring = geometry.CloseRing(ring)
	if !geometry.ValidateRing(ring) {
		return nil, errors.ErrInvalidPolygon
	}
	return uc.GenerateBlocks(name, geometry.ComputeBounds(ring)), nil
}

// EstimateBuildings - max(1, floor(площадь / площадь участка))
func (uc *GridUseCase) EstimateBuildings(block *domain.GridBlock) int {
	return uc.estimateFromArea(uc.oracle.AreaM2(block.Coordinates))
}

func (uc *GridUseCase) estimateFromArea(areaM2 float64) int {
	estimated := int(math.Floor(areaM2 / uc.opts.LotSizeM2))
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// FetchBlockDetails выбирает точки по сетке с джиттером, геокодирует их последовательно
// и группирует найденные здания по улицам. Блок больше MaxBlockAreaKm2 отклоняется
// с ErrInvalidPolygon до начала выборки.
func (uc *GridUseCase) FetchBlockDetails(ctx context.Context, block *domain.GridBlock) (*domain.BlockDetails, error) {
	areaM2 := uc.oracle.AreaM2(block.Coordinates)
	if areaKm2 := areaM2 / 1e6; math.IsNaN(areaKm2) || areaKm2 > uc.opts.MaxBlockAreaKm2 {
		return nil, errors.ErrInvalidPolygon.WithMessage(fmt.Sprintf(
			"Block area %.2f km² exceeds the %.2f km² limit", areaKm2, uc.opts.MaxBlockAreaKm2))
	}

	estimated := uc.estimateFromArea(areaM2)
	maxAttempts := uc.opts.AttemptsMultiplier * estimated
	g := int(math.Ceil(math.Sqrt(float64(estimated))))

	b := block.Bounds
	latStep := (b.North - b.South) / float64(g)
	lngStep := (b.East - b.West) / float64(g)
	rng := uc.newRand(block)

	prealloc := min(estimated, maxBuildingsPrealloc)
	seen := make(map[string]struct{}, prealloc)
	buildings := make([]domain.BuildingData, 0, prealloc)
	attempts := 0

	logger := uc.logger.With(zap.String("block_id", block.ID))
	logger.Debug("Fetching block details",
		zap.Int("estimated_buildings", estimated),
		zap.Int("max_attempts", maxAttempts),
		zap.Int("grid", g))

	done := func() bool { return attempts >= maxAttempts || len(buildings) >= estimated }

	for !done() {
		for row := 0; row < g && !done(); row++ {
			for col := 0; col < g && !done(); col++ {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("block %s: %w", block.ID, err)
				}
				attempts++

				p := orb.Point{
					b.West + (float64(col)+0.5)*lngStep + (rng.Float64()*2-1)*lngStep/2,
					b.South + (float64(row)+0.5)*latStep + (rng.Float64()*2-1)*latStep/2,
				}
				if !uc.oracle.Contains(block.Coordinates, p) {
					continue
				}

				building := uc.estimate(ctx, logger, Sample{Block: block, Point: p, Accepted: len(buildings)})
				key := strconv.Itoa(building.HouseNumber) + " " + building.StreetName
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				buildings = append(buildings, *building)
				metrics.BlockDetections.WithLabelValues(string(building.Type)).Inc()
			}
		}
	}

	logger.Debug("Block details fetched",
		zap.Int("buildings", len(buildings)),
		zap.Int("attempts", attempts))

	return &domain.BlockDetails{
		BlockID:            block.ID,
		Streets:            GroupByStreet(buildings),
		Buildings:          buildings,
		EstimatedBuildings: estimated,
		Attempts:           attempts,
	}, nil
}

func (uc *GridUseCase) estimate(ctx context.Context, logger *zap.Logger, s Sample) *domain.BuildingData {
	for _, est := range uc.estimators {
		building, err := est.Estimate(ctx, s)
		if err != nil {
			logger.Warn("Building estimator failed, recording placeholder",
				zap.String("estimator", est.Name()),
				zap.Error(err))
			return &domain.BuildingData{
				HouseNumber: 0,
				StreetName:  PlaceholderStreet(s.Block),
				Coordinate:  s.Point,
				Type:        domain.BuildingTypeEstimated,
			}
		}
		if building != nil {
			return building
		}
	}
	// цепочка без SyntheticEstimator в конце
	return &domain.BuildingData{
		HouseNumber: uc.opts.SyntheticHouseStart + 2*s.Accepted,
		StreetName:  PlaceholderStreet(s.Block),
		Coordinate:  s.Point,
		Type:        domain.BuildingTypeEstimated,
	}
}

func (uc *GridUseCase) newRand(block *domain.GridBlock) *rand.Rand {
	if uc.opts.Seed != 0 {
		return rand.New(rand.NewPCG(uc.opts.Seed, uint64(block.Number)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// FetchTerritoryDetails заполняет улицы и здания блоков, обрабатывая до concurrency блоков одновременно.
// Внутри блока выборка остаётся последовательной.
func (uc *GridUseCase) FetchTerritoryDetails(ctx context.Context, blocks []domain.GridBlock, concurrency int) ([]domain.GridBlock, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]domain.GridBlock, len(blocks))
	copy(out, blocks)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(concurrency).WithCancelOnError()
	for i := range out {
		block := &out[i]
		p.Go(func(ctx context.Context) error {
			details, err := uc.FetchBlockDetails(ctx, block)
			if err != nil {
				return err
			}
			block.Streets = details.Streets
			block.Buildings = details.Buildings
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// GroupByStreet группирует здания по улицам: номера по возрастанию, улицы по имени
func GroupByStreet(buildings []domain.BuildingData) []domain.StreetData {
	byStreet := make(map[string][]domain.BuildingData)
	for _, b := range buildings {
		byStreet[b.StreetName] = append(byStreet[b.StreetName], b)
	}

	streets := make([]domain.StreetData, 0, len(byStreet))
	for name, list := range byStreet {
		sort.SliceStable(list, func(i, j int) bool { return list[i].HouseNumber < list[j].HouseNumber })

		numbers := make([]int, len(list))
		coords := make([]orb.Point, len(list))
		for i, b := range list {
			numbers[i] = b.HouseNumber
			coords[i] = b.Coordinate
		}
		streets = append(streets, domain.StreetData{
			Name:            name,
			Coordinates:     coords,
			BuildingNumbers: numbers,
			Count:           len(list),
		})
	}

	sort.Slice(streets, func(i, j int) bool { return streets[i].Name < streets[j].Name })
	return streets
}
