package game

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/guess-game/internal/errors"
	"github.com/wfunc/guess-game/internal/models"
	"github.com/wfunc/guess-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 游戏会话存储服务
// 同一会话的操作串行执行（按会话ID加锁），不同会话互不阻塞
type Store struct {
	db          *gorm.DB
	sessionRepo repository.GameSessionRepository
	attemptRepo repository.GuessAttemptRepository
	historyRepo repository.MatchHistoryRepository
	configRepo  repository.GameConfigRepository
	broadcaster *Broadcaster
	strategies  []HintStrategy
	logger      *zap.Logger

	// 当前生效配置的快照，启动时加载，管理端更新时刷新
	cfgMu      sync.RWMutex
	gameConfig *models.GameConfig

	// 按会话ID的互斥锁
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now     func() time.Time
	randInt func(n int) int
}

// StoreConfig 存储服务配置
type StoreConfig struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	Strategies []HintStrategy   // 为空时使用默认策略链
	Now        func() time.Time // 为空时使用 time.Now
	RandInt    func(n int) int  // 为空时使用 rand.Intn
}

// NewStore 创建存储服务并加载生效配置
func NewStore(ctx context.Context, config *StoreConfig) (*Store, error) {
	s := &Store{
		db:          config.DB,
		sessionRepo: repository.NewGameSessionRepository(config.DB),
		attemptRepo: repository.NewGuessAttemptRepository(config.DB),
		historyRepo: repository.NewMatchHistoryRepository(config.DB),
		configRepo:  repository.NewGameConfigRepository(config.DB),
		broadcaster: NewBroadcaster(config.Logger),
		strategies:  config.Strategies,
		logger:      config.Logger,
		locks:       make(map[string]*sync.Mutex),
		now:         config.Now,
		randInt:     config.RandInt,
	}

	if len(s.strategies) == 0 {
		s.strategies = DefaultHintStrategies()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.randInt == nil {
		s.randInt = rand.Intn
	}

	cfg, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigMissing, "未找到生效的游戏配置")
	}
	s.gameConfig = cfg

	return s, nil
}

// ActiveConfig 返回当前生效配置的快照
func (s *Store) ActiveConfig() *models.GameConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.gameConfig
}

// UpdateConfig 写入新配置行并切换生效，刷新快照
// 已创建的会话继续使用创建时写入的区间，不受影响
func (s *Store) UpdateConfig(ctx context.Context, cfg *models.GameConfig) error {
	if cfg.MinRange >= cfg.MaxRange {
		return errors.Newf(errors.ErrInvalidRange, "min_range=%d max_range=%d", cfg.MinRange, cfg.MaxRange)
	}

	if err := s.configRepo.Save(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	if err := s.configRepo.Activate(ctx, cfg.ID); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate)
	}

	s.cfgMu.Lock()
	s.gameConfig = cfg
	s.cfgMu.Unlock()

	s.logger.Info("游戏配置已更新",
		zap.Uint("config_id", cfg.ID),
		zap.Int("min_range", cfg.MinRange),
		zap.Int("max_range", cfg.MaxRange),
		zap.Int("hint_trigger_count", cfg.HintTriggerCount))

	return nil
}

// Events 返回事件分发器（观战推送使用）
func (s *Store) Events() *Broadcaster {
	return s.broadcaster
}

// sessionLock 获取会话级互斥锁
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[sessionID] = mu
	}
	return mu
}

// releaseLock 移除会话的锁条目（会话被删除后调用）
func (s *Store) releaseLock(sessionID string) {
	s.locksMu.Lock()
	delete(s.locks, sessionID)
	s.locksMu.Unlock()
}

// CreateSessionRequest 创建会话请求
// 区间与秘密数字未指定时取当前生效配置的默认值
type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
	MinRange  *int   `json:"min_range"`
	MaxRange  *int   `json:"max_range"`
	Secret    *int   `json:"secret"`
}

// CreateSession 创建新的游戏会话
func (s *Store) CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.GameSession, error) {
	cfg := s.ActiveConfig()

	minRange := cfg.MinRange
	maxRange := cfg.MaxRange
	if req.MinRange != nil {
		minRange = *req.MinRange
	}
	if req.MaxRange != nil {
		maxRange = *req.MaxRange
	}

	if minRange >= maxRange {
		return nil, errors.Newf(errors.ErrInvalidRange, "min_range=%d max_range=%d", minRange, maxRange)
	}

	var secret int
	if req.Secret != nil {
		secret = *req.Secret
		if secret < minRange || secret > maxRange {
			return nil, errors.Newf(errors.ErrSecretOutOfRange, "secret=%d range=[%d,%d]", secret, minRange, maxRange)
		}
	} else {
		secret = minRange + s.randInt(maxRange-minRange+1)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	exists, err := s.sessionRepo.ExistsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if exists {
		return nil, errors.Newf(errors.ErrSessionExists, "session_id=%s", sessionID)
	}

	session := &models.GameSession{
		SessionID:    sessionID,
		SecretNumber: secret,
		MinRange:     minRange,
		MaxRange:     maxRange,
		Status:       models.SessionInProgress,
		StartedAt:    s.now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseInsert)
	}

	s.logger.Info("游戏会话已创建",
		zap.String("session_id", sessionID),
		zap.Int("min_range", minRange),
		zap.Int("max_range", maxRange))

	return session, nil
}

// GuessResult 猜测结果
type GuessResult struct {
	Attempt  *models.GuessAttempt `json:"attempt"`
	Message  string               `json:"message"`
	Finished bool                 `json:"finished"`
	Session  *models.GameSession  `json:"session"`
}

// SubmitGuess 提交一次猜测
// 会话结束（猜中）时在同一事务内更新会话、写入猜测记录并归档对局
func (s *Store) SubmitGuess(ctx context.Context, sessionID string, guess int) (*GuessResult, error) {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	if session.IsFinished() {
		return nil, errors.Newf(errors.ErrSessionFinished, "session_id=%s", sessionID)
	}

	now := s.now()
	cfg := s.ActiveConfig()

	var feedback models.Feedback
	switch {
	case guess < session.SecretNumber:
		feedback = models.FeedbackHigher
	case guess > session.SecretNumber:
		feedback = models.FeedbackLower
	default:
		feedback = models.FeedbackEqual
	}

	// 序号以已落库的猜测记录为准，持有会话锁时不会产生空洞
	maxOrder, err := s.attemptRepo.MaxOrder(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	attempt := &models.GuessAttempt{
		SessionID:   sessionID,
		Order:       maxOrder + 1,
		Guess:       guess,
		Feedback:    feedback,
		SubmittedAt: now,
	}

	finished := feedback == models.FeedbackEqual

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewGuessAttemptRepository(tx).Create(ctx, attempt); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"attempts": attempt.Order,
		}
		if finished {
			elapsed := int64(now.Sub(session.StartedAt).Seconds())
			updates["status"] = models.SessionFinished
			updates["ended_at"] = now
			updates["total_elapsed_seconds"] = elapsed
			updates["consecutive_incorrect"] = 0

			history := &models.MatchHistory{
				SessionID:           sessionID,
				Attempts:            attempt.Order,
				TotalElapsedSeconds: elapsed,
			}
			if err := repository.NewMatchHistoryRepository(tx).Create(ctx, history); err != nil {
				return err
			}
		} else {
			updates["consecutive_incorrect"] = session.ConsecutiveIncorrect + 1
		}

		return repository.NewGameSessionRepository(tx).UpdateBySessionID(ctx, sessionID, updates)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransaction)
	}

	// 回填内存中的会话状态
	session.Attempts = attempt.Order
	if finished {
		elapsed := int64(now.Sub(session.StartedAt).Seconds())
		session.Status = models.SessionFinished
		session.EndedAt = &now
		session.TotalElapsedSeconds = &elapsed
		session.ConsecutiveIncorrect = 0
	} else {
		session.ConsecutiveIncorrect++
	}

	message := cfg.FeedbackMessage(feedback)

	s.broadcaster.Publish(AttemptEvent{
		SessionID:   sessionID,
		Order:       attempt.Order,
		Guess:       guess,
		Feedback:    feedback,
		Message:     message,
		Finished:    finished,
		SubmittedAt: now,
	})

	s.logger.Debug("猜测已提交",
		zap.String("session_id", sessionID),
		zap.Int("order", attempt.Order),
		zap.String("feedback", string(feedback)),
		zap.Bool("finished", finished))

	return &GuessResult{
		Attempt:  attempt,
		Message:  message,
		Finished: finished,
		Session:  session,
	}, nil
}

// MaybeIssueHint 按触发条件发放提示
// 未满足触发条件时返回 (nil, nil)；触发阈值 <= 0 时提示功能关闭
// 连续未中计数只在猜中时清零，同一轮持续未中可以多次发放
func (s *Store) MaybeIssueHint(ctx context.Context, sessionID string) (*models.Hint, error) {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	if session.IsFinished() {
		return nil, errors.Newf(errors.ErrSessionFinished, "session_id=%s", sessionID)
	}

	cfg := s.ActiveConfig()
	if cfg.HintTriggerCount <= 0 {
		return nil, nil
	}
	if session.ConsecutiveIncorrect < cfg.HintTriggerCount {
		return nil, nil
	}

	attempts, err := s.attemptRepo.FindBySessionID(ctx, sessionID, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	// 按已发放次数轮换策略，生成失败时顺延下一个
	var text string
	var hintType models.HintType
	built := false
	for i := 0; i < len(s.strategies); i++ {
		strategy := s.strategies[(session.HintsUsed+i)%len(s.strategies)]
		if t, ok := strategy.Build(session, attempts); ok {
			text = t
			hintType = strategy.Type()
			built = true
			break
		}
	}
	if !built {
		return nil, nil
	}

	hint := &models.Hint{
		SessionID: sessionID,
		Text:      text,
		Type:      hintType,
		IssuedAt:  s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewHintRepository(tx).Create(ctx, hint); err != nil {
			return err
		}
		return repository.NewGameSessionRepository(tx).UpdateBySessionID(ctx, sessionID, map[string]interface{}{
			"hints_used": session.HintsUsed + 1,
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransaction)
	}

	s.logger.Info("提示已发放",
		zap.String("session_id", sessionID),
		zap.String("hint_type", string(hintType)))

	return hint, nil
}

// GetSession 查询会话详情（含猜测与提示记录）
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := s.sessionRepo.FindBySessionIDWithDetail(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return session, nil
}

// ListAttempts 分页查询会话的猜测记录
func (s *Store) ListAttempts(ctx context.Context, sessionID string, p *repository.Pagination) ([]*models.GuessAttempt, error) {
	exists, err := s.sessionRepo.ExistsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
	}

	attempts, err := s.attemptRepo.FindBySessionID(ctx, sessionID, p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return attempts, nil
}

// GetStatistics 查询全局统计
func (s *Store) GetStatistics(ctx context.Context) (*repository.GameStatistics, error) {
	stats, err := s.sessionRepo.GetStatistics(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return stats, nil
}

// BestScores 查询最佳战绩（尝试次数升序，用时升序）
func (s *Store) BestScores(ctx context.Context, limit int) ([]*models.GameSession, error) {
	if limit <= 0 {
		limit = 10
	}
	sessions, err := s.sessionRepo.BestScores(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return sessions, nil
}

// ListHistory 分页查询对局归档
func (s *Store) ListHistory(ctx context.Context, p *repository.Pagination) ([]*models.MatchHistory, error) {
	records, err := s.historyRepo.List(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return records, nil
}

// RateMatch 补记对局的难度评分（1-5）
func (s *Store) RateMatch(ctx context.Context, sessionID string, rating int) error {
	if rating < 1 || rating > 5 {
		return errors.Newf(errors.ErrInvalidRating, "rating=%d", rating)
	}

	err := s.historyRepo.UpdateRating(ctx, sessionID, rating)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
		}
		return errors.Wrap(err, errors.ErrDatabaseUpdate)
	}
	return nil
}

// CleanupStale 清理超期未结束的会话，返回删除数量
// 删除前在会话锁内复查状态，避免误删并发中刚结束的会话
func (s *Store) CleanupStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	ids, err := s.sessionRepo.FindStaleInProgress(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	deleted := 0
	for _, sessionID := range ids {
		removed, err := s.cleanupOne(ctx, sessionID, cutoff)
		if err != nil {
			s.logger.Error("清理会话失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		if removed {
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Info("超期会话清理完成", zap.Int("deleted", deleted))
	}

	return deleted, nil
}

// cleanupOne 在会话锁内删除单个超期会话
func (s *Store) cleanupOne(ctx context.Context, sessionID string, cutoff time.Time) (bool, error) {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	// 候选名单是无锁扫出来的，复查仍然超期且未结束
	if session.IsFinished() || !session.StartedAt.Before(cutoff) {
		return false, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewGuessAttemptRepository(tx).DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		if err := repository.NewHintRepository(tx).DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		return repository.NewGameSessionRepository(tx).DeleteBySessionID(ctx, sessionID)
	})
	if err != nil {
		return false, err
	}

	s.broadcaster.CloseSession(sessionID)
	s.releaseLock(sessionID)

	return true, nil
}
