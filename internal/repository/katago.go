package repo

import (
	"bufio"
	"context"
	"encoding/json"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"go_kifu/internal/bootstrap"
	"go_kifu/internal/domain"
	ownerrors "go_kifu/internal/errors"
)

// -----------------------------------------------------
// Клиент анализирующего движка (KataGo analysis engine)
// -----------------------------------------------------

// KatagoClient управляет процессом KataGo: пишет JSON-запросы в stdin,
// читает JSON-строки ответов из stdout и раскладывает их по каналам
// запросов. На один запрос движок присылает по одному объекту на каждый
// analyzeTurn (плюс промежуточные с isDuringSearch).
type KatagoClient struct {
	cmd     *exec.Cmd
	stdin   *bufio.Writer
	stdout  *bufio.Scanner
	mu      sync.Mutex
	streams sync.Map // map[queryID]*queryStream
	log     *zap.SugaredLogger
}

// queryStream — открытый поток результатов одного запроса. done
// закрывается при отказе потребителя от запроса, чтобы слушатель stdout
// не завис на отправке в никем не читаемый канал.
type queryStream struct {
	ch        chan domain.AnalysisResult
	done      chan struct{}
	remaining int
}

func NewKatagoClient(cfg *bootstrap.Config, log *zap.SugaredLogger) (*KatagoClient, error) {
	cmd := exec.Command(
		cfg.KatagoBin,
		"analysis",
		"-model", cfg.KatagoModel,
		"-config", cfg.KatagoConfig,
	)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	client := &KatagoClient{
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdinPipe),
		stdout: bufio.NewScanner(stdoutPipe),
		log:    log,
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go client.listenForResponses()

	return client, nil
}

func (c *KatagoClient) listenForResponses() {
	for c.stdout.Scan() {
		line := c.stdout.Text()

		var res domain.AnalysisResult
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			c.log.Errorw("failed to unmarshal katago response", "error", err, "line", line)
			continue
		}

		sIface, ok := c.streams.Load(res.ID)
		if !ok {
			c.log.Warnw("no stream found for response ID", "id", res.ID)
			continue
		}
		stream := sIface.(*queryStream)

		if res.Error != "" {
			select {
			case stream.ch <- res:
			case <-stream.done:
			}
			close(stream.ch)
			c.streams.Delete(res.ID)
			continue
		}

		if res.IsDuringSearch {
			// Промежуточный результат: отдаём, если потребитель успевает.
			select {
			case stream.ch <- res:
			default:
			}
			continue
		}

		// Финальный результат обязан дойти, но ждать можно только пока
		// потребитель жив: иначе встанет разбор всего stdout движка.
		select {
		case stream.ch <- res:
		case <-stream.done:
			c.streams.Delete(res.ID)
			continue
		}
		stream.remaining--
		if stream.remaining <= 0 {
			close(stream.ch)
			c.streams.Delete(res.ID)
		}
	}
}

// Analyze отправляет запрос движку и возвращает канал результатов. Канал
// закрывается, когда получены финальные ответы по всем analyzeTurns (или
// движок вернул ошибку).
func (c *KatagoClient) Analyze(ctx context.Context, query domain.AnalysisQuery) (<-chan domain.AnalysisResult, error) {
	if !c.IsRunning() {
		return nil, ownerrors.ErrEngineNotReady
	}

	stream := &queryStream{
		ch:        make(chan domain.AnalysisResult, len(query.AnalyzeTurns)+1),
		done:      make(chan struct{}),
		remaining: len(query.AnalyzeTurns),
	}
	c.streams.Store(query.ID, stream)

	requestJSON, err := json.Marshal(query)
	if err != nil {
		c.streams.Delete(query.ID)
		return nil, err
	}

	// Пишем в stdin под мьютексом, чтобы запросы не перемешались.
	c.mu.Lock()
	_, err = c.stdin.Write(append(requestJSON, '\n'))
	if err == nil {
		err = c.stdin.Flush()
	}
	c.mu.Unlock()
	if err != nil {
		c.streams.Delete(query.ID)
		return nil, err
	}

	return stream.ch, nil
}

// Abandon снимает запрос с обслуживания: потребитель ушёл, дальнейшие
// результаты по этому id отбрасываются. Повторный вызов и вызов после
// завершения запроса безопасны.
func (c *KatagoClient) Abandon(queryID string) {
	if sIface, ok := c.streams.LoadAndDelete(queryID); ok {
		close(sIface.(*queryStream).done)
	}
}

func (c *KatagoClient) IsRunning() bool {
	return c.cmd != nil && c.cmd.Process != nil &&
		(c.cmd.ProcessState == nil || !c.cmd.ProcessState.Exited())
}

func (c *KatagoClient) Close() error {
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}
