package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"go_kifu/internal/domain"
	"go_kifu/internal/domain/kifu"
	"go_kifu/internal/domain/rules"
	"go_kifu/internal/domain/sgf"
	"go_kifu/internal/errors"
)

type RecordStore interface {
	GenerateRecordKey() string
	SaveRecord(ctx context.Context, rec domain.Record) error
	GetRecordByKey(ctx context.Context, key string) (domain.Record, error)
	UpdateRecordSGF(ctx context.Context, key string, sgfText string) error
	ListRecords(ctx context.Context, pageNum int) ([]domain.Record, error)
	SaveSGF(ctx context.Context, key string, sgfText string) error
	LoadSGF(ctx context.Context, key string) (string, error)
}

// RecordUseCase владеет рабочими деревьями открытых записей. Все мутации
// (ход, промоушен, вливание анализа) идут через один мьютекс: движок
// рассчитан на одного писателя и сам не блокируется.
type RecordUseCase struct {
	store  RecordStore
	log    *zap.SugaredLogger
	parser *sgf.Parser

	mu    sync.Mutex
	trees map[string]*kifu.Tree
}

func NewRecordUseCase(store RecordStore, log *zap.SugaredLogger, strict bool) *RecordUseCase {
	return &RecordUseCase{
		store:  store,
		log:    log,
		parser: sgf.NewParser(strict),
		trees:  make(map[string]*kifu.Tree),
	}
}

// Upload валидирует и разбирает сырой текст записи, сохраняет её в архив
// и делает рабочей.
func (u *RecordUseCase) Upload(ctx context.Context, raw string, name string) (domain.Record, error) {
	if err := sgf.Validate(raw); err != nil {
		return domain.Record{}, err
	}

	tree, err := u.parser.Parse(raw)
	if err != nil {
		return domain.Record{}, err
	}

	key := u.store.GenerateRecordKey()
	canonical := sgf.Serialize(tree)
	now := time.Now()
	rec := domain.Record{
		Key:       key,
		Name:      name,
		SGF:       canonical,
		BoardSize: tree.Size(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.store.SaveRecord(ctx, rec); err != nil {
		return domain.Record{}, err
	}
	if err := u.store.SaveSGF(ctx, key, canonical); err != nil {
		return domain.Record{}, err
	}

	u.mu.Lock()
	u.trees[key] = tree
	u.mu.Unlock()

	u.log.Infof("record %s uploaded, %d nodes", key, tree.Len())
	return rec, nil
}

// Get возвращает запись из архива.
func (u *RecordUseCase) Get(ctx context.Context, key string) (domain.Record, error) {
	return u.store.GetRecordByKey(ctx, key)
}

// List — страница архива, свежие записи первыми.
func (u *RecordUseCase) List(ctx context.Context, pageNum int) ([]domain.Record, error) {
	return u.store.ListRecords(ctx, pageNum)
}

// Tree возвращает рабочее дерево записи, при необходимости поднимая его
// из Redis (после рестарта сервиса).
func (u *RecordUseCase) Tree(ctx context.Context, key string) (*kifu.Tree, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.treeLocked(ctx, key)
}

func (u *RecordUseCase) treeLocked(ctx context.Context, key string) (*kifu.Tree, error) {
	if tree, ok := u.trees[key]; ok {
		return tree, nil
	}
	raw, err := u.store.LoadSGF(ctx, key)
	if err != nil {
		return nil, err
	}
	tree, err := u.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	u.trees[key] = tree
	return tree, nil
}

// Board возвращает позицию и счётчики пленников для узла. Вывод позиции
// пишет write-once кеши на узлах, поэтому идёт под тем же мьютексом, что
// и мутации: движок рассчитан на одного писателя.
func (u *RecordUseCase) Board(ctx context.Context, key string, node kifu.NodeID) (*kifu.BoardState, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	tree, err := u.treeLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	state, ok := tree.BoardAt(node)
	if !ok {
		return nil, errors.ErrNodeNotFound
	}
	return state, nil
}

// Play проверяет ход правилами и присоединяет его к узлу parent. Ко
// проверяется по хешу позиции на один ход раньше (позиция деда).
func (u *RecordUseCase) Play(ctx context.Context, key string, parent kifu.NodeID, row, col int, player int8) (kifu.NodeID, *kifu.BoardState, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	tree, err := u.treeLocked(ctx, key)
	if err != nil {
		return kifu.NoNode, nil, err
	}
	parentState, ok := tree.BoardAt(parent)
	if !ok {
		return kifu.NoNode, nil, errors.ErrNodeNotFound
	}

	mv := kifu.Move{Row: row, Col: col, Player: player}
	if !mv.IsPass() {
		prevHash := ""
		if pn, ok := tree.MoveNode(parent); ok {
			if grandState, ok := tree.BoardAt(pn.Parent); ok {
				prevHash = rules.Hash(grandState.Board)
			}
		}
		if !rules.IsValid(parentState.Board, row, col, player, prevHash) {
			return kifu.NoNode, nil, errors.ErrIllegalMove
		}
		mv.Captured = rules.Captures(parentState.Board, row, col, player)
	}

	newTree, id := tree.PlayMove(parent, mv)
	u.trees[key] = newTree
	u.persistLocked(ctx, key, newTree)

	state, _ := newTree.BoardAt(id)
	return id, state, nil
}

// Promote делает вариант главной линией в своей развилке.
func (u *RecordUseCase) Promote(ctx context.Context, key string, node kifu.NodeID) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	tree, err := u.treeLocked(ctx, key)
	if err != nil {
		return err
	}
	if _, ok := tree.Node(node); !ok {
		return errors.ErrNodeNotFound
	}

	newTree := tree.PromoteVariation(node)
	if newTree == tree {
		return nil
	}
	u.trees[key] = newTree
	u.persistLocked(ctx, key, newTree)
	return nil
}

// SGF — полная сериализация рабочего дерева.
func (u *RecordUseCase) SGF(ctx context.Context, key string) (string, error) {
	tree, err := u.Tree(ctx, key)
	if err != nil {
		return "", err
	}
	return sgf.Serialize(tree), nil
}

// Line — сериализация одной линии игры от корня до узла.
func (u *RecordUseCase) Line(ctx context.Context, key string, node kifu.NodeID) (string, error) {
	tree, err := u.Tree(ctx, key)
	if err != nil {
		return "", err
	}
	out := sgf.SerializeLine(tree, node)
	if out == "" {
		return "", errors.ErrNodeNotFound
	}
	return out, nil
}

// MergeAnalysis вливает один результат движка в дерево и возвращает
// обновлённый SGF. Вызовы сериализуются мьютексом: один результат
// обрабатывается целиком до начала следующего.
func (u *RecordUseCase) MergeAnalysis(ctx context.Context, key string, node kifu.NodeID, res domain.AnalysisResult) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	tree, err := u.treeLocked(ctx, key)
	if err != nil {
		return "", err
	}

	winrate := res.RootInfo.Winrate * 100
	score := res.RootInfo.ScoreLead
	currentPlayer := playerFromLetter(res.RootInfo.CurrentPlayer)

	infos := append([]domain.MoveInfo(nil), res.MoveInfos...)
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Order < infos[j].Order })
	suggestions := make([]kifu.Suggestion, 0, len(infos))
	for _, mi := range infos {
		suggestions = append(suggestions, kifu.Suggestion{
			Move:    mi.Move,
			Winrate: mi.Winrate * 100,
			Score:   mi.ScoreLead,
			Visits:  mi.Visits,
			PV:      mi.PV,
		})
	}

	newTree := tree.MergeAnalysis(node, winrate, score, suggestions, currentPlayer)
	u.trees[key] = newTree
	u.persistLocked(ctx, key, newTree)
	return sgf.Serialize(newTree), nil
}

func (u *RecordUseCase) persistLocked(ctx context.Context, key string, tree *kifu.Tree) {
	sgfText := sgf.Serialize(tree)
	if err := u.store.SaveSGF(ctx, key, sgfText); err != nil {
		u.log.Errorf("failed to save sgf for %s: %v", key, err)
	}
	if err := u.store.UpdateRecordSGF(ctx, key, sgfText); err != nil {
		u.log.Errorf("failed to update record %s in archive: %v", key, err)
	}
}

func playerFromLetter(s string) int8 {
	switch {
	case len(s) > 0 && (s[0] == 'B' || s[0] == 'b'):
		return rules.Black
	case len(s) > 0 && (s[0] == 'W' || s[0] == 'w'):
		return rules.White
	}
	return 0
}
