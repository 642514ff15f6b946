package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bloomo-gateway/internal/middleware"
	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/internal/service"
	"bloomo-gateway/pkg/database"
	"bloomo-gateway/pkg/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testStream struct {
	fragments []string
	err       error
	pos       int
}

func (s *testStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		s.pos++
		return s.fragments[s.pos-1], nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *testStream) Close() error { return nil }

// testLLM 每次调用都返回同一脚本的新流。
type testLLM struct {
	mu        sync.Mutex
	fragments []string
	err       error
	calls     int
}

func (c *testLLM) StreamChat(_ context.Context, _ llm.ChatRequest) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &testStream{fragments: c.fragments, err: c.err}, nil
}

var errOutage = errors.New("store outage")

// outageMessageRepo 让助手消息写入失败，模拟流结束后的存储故障。
type outageMessageRepo struct {
	repository.MessageRepository
}

func (r outageMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	if msg.Role == model.RoleAssistant {
		return errOutage
	}
	return r.MessageRepository.Create(ctx, msg)
}

type outageConversationRepo struct {
	repository.ConversationRepository
}

func (r outageConversationRepo) TouchLastActive(context.Context, string, time.Time) error {
	return errOutage
}

type outageAnalyticsRepo struct{}

func (outageAnalyticsRepo) Create(context.Context, *model.AnalyticsEvent) error { return errOutage }

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	sink   *service.PersistenceSink
}

type envOptions struct {
	client   llm.Client
	outage   bool
	origins  []string
	override string
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	var sinkConvRepo = convRepo
	var sinkMsgRepo = msgRepo
	var sinkAnalytics service.AnalyticsEmitter = service.NewAnalyticsService(analyticsRepo, nil)
	if opts.outage {
		sinkConvRepo = outageConversationRepo{convRepo}
		sinkMsgRepo = outageMessageRepo{msgRepo}
		sinkAnalytics = service.NewAnalyticsService(outageAnalyticsRepo{}, nil)
	}

	assembler, err := service.NewContextAssembler(msgRepo, "", 20)
	require.NoError(t, err)
	sink := service.NewPersistenceSink(sinkConvRepo, sinkMsgRepo, sinkAnalytics, 5*time.Second)
	chatSvc := service.NewChatService(
		opts.client,
		service.NewModelRouter("gpt-4.1-mini", "gpt-4.1-turbo", opts.override),
		service.NewConversationResolver(convRepo, nil, sink.Emitter(), true),
		assembler,
		sink,
		leadRepo,
		service.ChatOptions{Temperature: 0.3},
	)

	r := gin.New()
	r.Use(middleware.CORS(opts.origins), gin.Recovery())
	RegisterRoutes(r, Handlers{
		Chat:       NewChatHandler(chatSvc, opts.origins),
		Lead:       NewLeadHandler(service.NewLeadService(leadRepo)),
		Suggestion: NewSuggestionHandler(service.NewSuggestionService()),
	})
	return &testEnv{db: db, router: r, sink: sink}
}

func newClientEnv(t *testing.T, fragments []string, streamErr error) (*testEnv, *testLLM) {
	client := &testLLM{fragments: fragments, err: streamErr}
	return newTestEnv(t, envOptions{client: client}), client
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.sink.Wait(ctx))
	return w
}

func (e *testEnv) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func (e *testEnv) messages(t *testing.T, convID, role string) []model.Message {
	t.Helper()
	var msgs []model.Message
	require.NoError(t, e.db.Where("conversation_id = ? AND role = ?", convID, role).Order("id").Find(&msgs).Error)
	return msgs
}

func chatBody(prompt, email string) gin.H {
	return gin.H{"lang": "en", "prompt": prompt, "lead": gin.H{"name": "Ada", "email": email}}
}
