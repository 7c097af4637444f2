package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go_kifu/internal/bootstrap"
	"go_kifu/internal/domain"
	"go_kifu/internal/domain/kifu"
	"go_kifu/internal/domain/rules"
	"go_kifu/internal/errors"
)

// Engine — анализирующий движок. Канал закрывается, когда по всем
// запрошенным ходам пришли финальные результаты. Abandon сообщает движку,
// что результаты запроса больше никто не ждёт.
type Engine interface {
	Analyze(ctx context.Context, query domain.AnalysisQuery) (<-chan domain.AnalysisResult, error)
	Abandon(queryID string)
}

// Records — рабочие записи: дерево для построения запроса и вливание
// результатов.
type Records interface {
	Tree(ctx context.Context, key string) (*kifu.Tree, error)
	MergeAnalysis(ctx context.Context, key string, node kifu.NodeID, res domain.AnalysisResult) (string, error)
}

// Update — одно влитое обновление, уходит клиенту в сокет.
type Update struct {
	NodeID     int     `json:"node_id"`
	TurnNumber int     `json:"turn_number"`
	Winrate    float64 `json:"winrate"` // проценты
	Score      float64 `json:"score"`
	IsPartial  bool    `json:"is_partial"`
	SGF        string  `json:"sgf"`
}

type AnalysisUseCase struct {
	cfg     bootstrap.Config
	log     *zap.SugaredLogger
	engine  Engine
	records Records
}

func NewAnalysisUseCase(cfg bootstrap.Config, log *zap.SugaredLogger, engine Engine, records Records) *AnalysisUseCase {
	return &AnalysisUseCase{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		records: records,
	}
}

// BuildQuery собирает запрос движку из одной линии игры: путь от корня до
// target, боковые ветки не попадают в запрос. Возвращает также соответствие
// turnNumber -> узел дерева для вливания результатов.
func (a *AnalysisUseCase) BuildQuery(tree *kifu.Tree, target kifu.NodeID) (domain.AnalysisQuery, []kifu.NodeID, error) {
	path := tree.Path(target)
	if path == nil {
		return domain.AnalysisQuery{}, nil, errors.ErrNodeNotFound
	}

	size := tree.Size()
	root := tree.Root()

	var initialStones [][2]string
	for _, s := range root.Setup {
		initialStones = append(initialStones, [2]string{playerLetter(s.Player), kifu.ToGTP(s.Row, s.Col, size)})
	}

	var moves [][2]string
	nodesByTurn := []kifu.NodeID{0}
	for _, id := range path[1:] {
		mn, _ := tree.MoveNode(id)
		if mn.Move.IsSetupOnly() {
			if len(moves) == 0 {
				for _, s := range mn.Move.Setup {
					initialStones = append(initialStones, [2]string{playerLetter(s.Player), kifu.ToGTP(s.Row, s.Col, size)})
				}
				nodesByTurn[0] = id
			}
			continue
		}
		moves = append(moves, [2]string{playerLetter(mn.Move.Player), kifu.ToGTP(mn.Move.Row, mn.Move.Col, size)})
		nodesByTurn = append(nodesByTurn, id)
	}

	analyzeTurns := make([]int, len(moves)+1)
	for i := range analyzeTurns {
		analyzeTurns[i] = i
	}

	query := domain.AnalysisQuery{
		ID:            uuid.New().String(),
		Moves:         moves,
		InitialStones: initialStones,
		InitialPlayer: playerLetter(tree.InitialPlayer()),
		Rules:         rootRules(root),
		Komi:          rootKomi(root, a.cfg.DefaultKomi),
		BoardXSize:    size,
		BoardYSize:    size,
		AnalyzeTurns:  analyzeTurns,
		MaxVisits:     a.cfg.MaxVisits,
	}
	return query, nodesByTurn, nil
}

// Stream запускает анализ линии и по одному вливает приходящие результаты
// в дерево. Каждый результат обрабатывается целиком до следующего; push —
// колбэк доставки клиенту.
func (a *AnalysisUseCase) Stream(ctx context.Context, key string, target kifu.NodeID, push func(Update) error) error {
	tree, err := a.records.Tree(ctx, key)
	if err != nil {
		return err
	}
	query, nodesByTurn, err := a.BuildQuery(tree, target)
	if err != nil {
		return err
	}

	results, err := a.engine.Analyze(ctx, query)
	if err != nil {
		return err
	}
	// Любой ранний выход (клиент ушёл, ошибка вливания) снимает запрос с
	// обслуживания; после нормального завершения это no-op.
	defer a.engine.Abandon(query.ID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			if res.Error != "" {
				return fmt.Errorf("analysis engine error: %s", res.Error)
			}
			if res.TurnNumber < 0 || res.TurnNumber >= len(nodesByTurn) {
				a.log.Warnf("turn %d outside of analyzed line", res.TurnNumber)
				continue
			}
			node := nodesByTurn[res.TurnNumber]
			sgfText, err := a.records.MergeAnalysis(ctx, key, node, res)
			if err != nil {
				return err
			}
			update := Update{
				NodeID:     int(node),
				TurnNumber: res.TurnNumber,
				Winrate:    res.RootInfo.Winrate * 100,
				Score:      res.RootInfo.ScoreLead,
				IsPartial:  res.IsDuringSearch,
				SGF:        sgfText,
			}
			if err := push(update); err != nil {
				return err
			}
		}
	}
}

func playerLetter(player int8) string {
	if player == rules.White {
		return "W"
	}
	return "B"
}

func rootRules(root *kifu.Root) string {
	if ru, ok := root.Props["RU"]; ok && len(ru) > 0 && ru[0] != "" {
		return strings.ToLower(ru[0])
	}
	return "japanese"
}

func rootKomi(root *kifu.Root, fallback float64) float64 {
	if km, ok := root.Props["KM"]; ok && len(km) > 0 {
		if v, err := strconv.ParseFloat(km[0], 64); err == nil {
			return v
		}
	}
	return fallback
}
