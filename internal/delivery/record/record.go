package record

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"go_kifu/internal/bootstrap"
	"go_kifu/internal/domain"
	"go_kifu/internal/domain/kifu"
	ownerrors "go_kifu/internal/errors"
	"go_kifu/internal/httpresponse"
	repo "go_kifu/internal/repository"
	analysisuc "go_kifu/internal/usecase/analysis"
	recorduc "go_kifu/internal/usecase/record"
	"go_kifu/internal/utils"
)

const sessionCookieName = "session_id"

type RecordHandler struct {
	cfg        bootstrap.Config
	log        *zap.SugaredLogger
	recordUC   *recorduc.RecordUseCase
	analysisUC *analysisuc.AnalysisUseCase
	sessions   *repo.RedisSessionStorage
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewRecordHandler(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	recordUC *recorduc.RecordUseCase,
	analysisUC *analysisuc.AnalysisUseCase,
	sessions *repo.RedisSessionStorage,
) *RecordHandler {
	return &RecordHandler{
		cfg:        cfg,
		log:        log,
		recordUC:   recordUC,
		analysisUC: analysisUC,
		sessions:   sessions,
	}
}

type uploadRequest struct {
	Name string `json:"name"`
	SGF  string `json:"sgf"`
}

type uploadResponse struct {
	Key       string `json:"key"`
	BoardSize int    `json:"board_size"`
	SGF       string `json:"sgf"`
}

// HandleUpload принимает сырой SGF, сохраняет запись и открывает
// навигационную сессию на её корне.
func (h *RecordHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req uploadRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("JSON decode error:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.recordUC.Upload(r.Context(), req.SGF, req.Name)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	sessionID := h.ensureSession(w, r)
	h.sessions.StoreNavigation(sessionID, domain.Navigation{
		RecordKey:   rec.Key,
		CurrentNode: 0,
	})

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, uploadResponse{
		Key:       rec.Key,
		BoardSize: rec.BoardSize,
		SGF:       rec.SGF,
	})
}

type boardResponse struct {
	Node          int        `json:"node"`
	Board         [][]int8   `json:"board"`
	BlackCaptures int        `json:"black_captures"`
	WhiteCaptures int        `json:"white_captures"`
	Children      []childRef `json:"children"`
}

type childRef struct {
	Node int    `json:"node"`
	Move string `json:"move,omitempty"`
}

// HandleBoard отдаёт позицию узла и двигает сессионный курсор на него.
func (h *RecordHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	key, node, ok := h.recordAndNode(w, r)
	if !ok {
		return
	}

	state, err := h.recordUC.Board(r.Context(), key, node)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	tree, err := h.recordUC.Tree(r.Context(), key)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	if sessionID := h.sessionID(r); sessionID != "" {
		h.sessions.StoreNavigation(sessionID, domain.Navigation{
			RecordKey:   key,
			CurrentNode: int(node),
		})
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, boardResponse{
		Node:          int(node),
		Board:         state.Board,
		BlackCaptures: state.BlackCaptures,
		WhiteCaptures: state.WhiteCaptures,
		Children:      childRefs(tree, node),
	})
}

type moveRequest struct {
	Key    string `json:"key"`
	Parent int    `json:"parent"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Player string `json:"player"`
	Pass   bool   `json:"pass"`
}

type moveResponse struct {
	Node          int      `json:"node"`
	Board         [][]int8 `json:"board"`
	BlackCaptures int      `json:"black_captures"`
	WhiteCaptures int      `json:"white_captures"`
	SGF           string   `json:"sgf"`
}

// HandleMove проверяет ход правилами и присоединяет его к дереву.
func (h *RecordHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req moveRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("JSON decode error:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	player := playerFromLetter(req.Player)
	if player == 0 {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "player must be B or W")
		return
	}

	row, col := req.Row, req.Col
	if req.Pass {
		row, col = -1, -1
	}

	ctx := r.Context()
	id, state, err := h.recordUC.Play(ctx, req.Key, kifu.NodeID(req.Parent), row, col, player)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	sgfText, err := h.recordUC.SGF(ctx, req.Key)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	if sessionID := h.sessionID(r); sessionID != "" {
		h.sessions.StoreNavigation(sessionID, domain.Navigation{
			RecordKey:   req.Key,
			CurrentNode: int(id),
		})
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, moveResponse{
		Node:          int(id),
		Board:         state.Board,
		BlackCaptures: state.BlackCaptures,
		WhiteCaptures: state.WhiteCaptures,
		SGF:           sgfText,
	})
}

type promoteRequest struct {
	Key  string `json:"key"`
	Node int    `json:"node"`
}

// HandlePromote делает вариант главной линией.
func (h *RecordHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.log.Error("Only POST method is allowed")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req promoteRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("JSON decode error:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.recordUC.Promote(ctx, req.Key, kifu.NodeID(req.Node)); err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	sgfText, err := h.recordUC.SGF(ctx, req.Key)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"sgf": sgfText})
}

// HandleSGF отдаёт полную сериализацию дерева.
func (h *RecordHandler) HandleSGF(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "missing key")
		return
	}

	sgfText, err := h.recordUC.SGF(r.Context(), key)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"sgf": sgfText})
}

// HandleLine отдаёт одну линию игры от корня до узла.
func (h *RecordHandler) HandleLine(w http.ResponseWriter, r *http.Request) {
	key, node, ok := h.recordAndNode(w, r)
	if !ok {
		return
	}

	line, err := h.recordUC.Line(r.Context(), key, node)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"sgf": line})
}

type resumeResponse struct {
	Key  string `json:"key"`
	Node int    `json:"node"`
	SGF  string `json:"sgf"`
}

// HandleResume восстанавливает сессию: какая запись открыта и на каком
// узле остановился клиент.
func (h *RecordHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(r)
	if sessionID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusUnauthorized, "no session")
		return
	}

	nav, ok := h.sessions.GetNavigationBySession(sessionID)
	if !ok {
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound, ownerrors.ErrSessionNotFound.Error())
		return
	}

	sgfText, err := h.recordUC.SGF(r.Context(), nav.RecordKey)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resumeResponse{
		Key:  nav.RecordKey,
		Node: nav.CurrentNode,
		SGF:  sgfText,
	})
}

// HandleAnalyze поднимает websocket и стримит в него результаты анализа
// линии от корня до запрошенного узла, по мере того как движок их считает.
func (h *RecordHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	nodeParam := r.URL.Query().Get("node")
	if key == "" || nodeParam == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "missing key or node")
		return
	}
	nodeNum, err := strconv.Atoi(nodeParam)
	if err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "node must be a number")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error:", err)
		return
	}
	defer conn.Close()

	err = h.analysisUC.Stream(r.Context(), key, kifu.NodeID(nodeNum), func(upd analysisuc.Update) error {
		return conn.WriteJSON(upd)
	})
	if err != nil {
		h.log.Error("analysis stream error:", err)
		conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
		return
	}

	conn.WriteMessage(websocket.TextMessage, []byte("analysis complete"))
}

// HandleList — страница архива записей.
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pageNum := 0
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "page must be a non-negative number")
			return
		}
		pageNum = n
	}

	records, err := h.recordUC.List(r.Context(), pageNum)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, records)
}

// HandleRecord — карточка записи из архива.
func (h *RecordHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "missing key")
		return
	}

	rec, err := h.recordUC.Get(r.Context(), key)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, statusForError(err), err.Error())
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rec)
}

// HandleHealth — проверка живости сервиса.
func (h *RecordHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RecordHandler) recordAndNode(w http.ResponseWriter, r *http.Request) (string, kifu.NodeID, bool) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "missing key")
		return "", kifu.NoNode, false
	}
	nodeParam := r.URL.Query().Get("node")
	if nodeParam == "" {
		nodeParam = "0"
	}
	nodeNum, err := strconv.Atoi(nodeParam)
	if err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "node must be a number")
		return "", kifu.NoNode, false
	}
	return key, kifu.NodeID(nodeNum), true
}

func (h *RecordHandler) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *RecordHandler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := h.sessionID(r); id != "" {
		return id
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

func childRefs(tree *kifu.Tree, node kifu.NodeID) []childRef {
	var refs []childRef
	var children []kifu.NodeID
	n, _ := tree.Node(node)
	switch n := n.(type) {
	case *kifu.Root:
		children = n.Children
	case *kifu.MoveNode:
		children = n.Children
	}
	for _, c := range children {
		ref := childRef{Node: int(c)}
		if mn, ok := tree.MoveNode(c); ok && !mn.Move.IsSetupOnly() {
			ref.Move = kifu.ToGTP(mn.Move.Row, mn.Move.Col, tree.Size())
		}
		refs = append(refs, ref)
	}
	return refs
}

func playerFromLetter(s string) int8 {
	switch {
	case len(s) > 0 && (s[0] == 'B' || s[0] == 'b'):
		return 1
	case len(s) > 0 && (s[0] == 'W' || s[0] == 'w'):
		return 2
	}
	return 0
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ownerrors.ErrRecordNotFound),
		errors.Is(err, ownerrors.ErrNodeNotFound),
		errors.Is(err, ownerrors.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ownerrors.ErrInvalidRecord),
		errors.Is(err, ownerrors.ErrIllegalMove):
		return http.StatusBadRequest
	case errors.Is(err, ownerrors.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
