package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/guess-game/internal/errors"
	"github.com/wfunc/guess-game/internal/models"
	"github.com/wfunc/guess-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	db := repository.TestDB(t)
	repository.SeedTestConfig(t, db)

	store, err := NewStore(context.Background(), &StoreConfig{
		DB:     db,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return store, db
}

func intPtr(v int) *int {
	return &v
}

func TestNewStore_NoActiveConfig(t *testing.T) {
	db := repository.TestDB(t)
	defer repository.CleanupTestDB(db)

	_, err := NewStore(context.Background(), &StoreConfig{
		DB:     db,
		Logger: zap.NewNop(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigMissing))
}

func TestCreateSession_Defaults(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	// 不指定任何参数：ID自动生成，区间取生效配置
	session, err := store.CreateSession(ctx, &CreateSessionRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, 1, session.MinRange)
	assert.Equal(t, 100, session.MaxRange)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.GreaterOrEqual(t, session.SecretNumber, 1)
	assert.LessOrEqual(t, session.SecretNumber, 100)
	assert.Equal(t, 0, session.Attempts)
}

func TestCreateSession_InvalidRange(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	// min >= max 一律拒绝
	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		MinRange: intPtr(50),
		MaxRange: intPtr(50),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRange))

	_, err = store.CreateSession(ctx, &CreateSessionRequest{
		MinRange: intPtr(100),
		MaxRange: intPtr(1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRange))
}

func TestCreateSession_SecretOutOfRange(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		MinRange: intPtr(1),
		MaxRange: intPtr(10),
		Secret:   intPtr(11),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSecretOutOfRange))

	// 边界值合法
	session, err := store.CreateSession(ctx, &CreateSessionRequest{
		MinRange: intPtr(1),
		MaxRange: intPtr(10),
		Secret:   intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, session.SecretNumber)
}

func TestCreateSession_DuplicateID(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{SessionID: "dup"})
	require.NoError(t, err)

	_, err = store.CreateSession(ctx, &CreateSessionRequest{SessionID: "dup"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSessionExists))
}

func TestSubmitGuess_Feedback(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-feedback",
		Secret:    intPtr(50),
	})
	require.NoError(t, err)

	// 猜小了：提示往大猜
	result, err := store.SubmitGuess(ctx, "s-feedback", 30)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackHigher, result.Attempt.Feedback)
	assert.Equal(t, "try a larger number", result.Message)
	assert.Equal(t, 1, result.Attempt.Order)
	assert.False(t, result.Finished)

	// 猜大了：提示往小猜
	result, err = store.SubmitGuess(ctx, "s-feedback", 70)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackLower, result.Attempt.Feedback)
	assert.Equal(t, "try a smaller number", result.Message)
	assert.Equal(t, 2, result.Attempt.Order)
	assert.False(t, result.Finished)

	// 猜中：会话结束
	result, err = store.SubmitGuess(ctx, "s-feedback", 50)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackEqual, result.Attempt.Feedback)
	assert.Equal(t, "correct", result.Message)
	assert.Equal(t, 3, result.Attempt.Order)
	assert.True(t, result.Finished)
	assert.Equal(t, models.SessionFinished, result.Session.Status)
	require.NotNil(t, result.Session.EndedAt)
	require.NotNil(t, result.Session.TotalElapsedSeconds)

	// 猜中的同一事务写入了归档记录
	historyRepo := repository.NewMatchHistoryRepository(db)
	record, err := historyRepo.FindBySessionID(ctx, "s-feedback")
	require.NoError(t, err)
	assert.Equal(t, 3, record.Attempts)
	assert.Nil(t, record.DifficultyRating)
}

func TestSubmitGuess_ElapsedSeconds(t *testing.T) {
	db := repository.TestDB(t)
	defer repository.CleanupTestDB(db)
	repository.SeedTestConfig(t, db)

	// 可控时钟：验证用时计算
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewStore(context.Background(), &StoreConfig{
		DB:     db,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return current },
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-elapsed",
		Secret:    intPtr(42),
	})
	require.NoError(t, err)

	current = current.Add(90 * time.Second)

	result, err := store.SubmitGuess(ctx, "s-elapsed", 42)
	require.NoError(t, err)
	require.NotNil(t, result.Session.TotalElapsedSeconds)
	assert.Equal(t, int64(90), *result.Session.TotalElapsedSeconds)

	record, err := repository.NewMatchHistoryRepository(db).FindBySessionID(ctx, "s-elapsed")
	require.NoError(t, err)
	assert.Equal(t, int64(90), record.TotalElapsedSeconds)
}

func TestSubmitGuess_AfterFinish(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-done",
		Secret:    intPtr(42),
	})
	require.NoError(t, err)

	_, err = store.SubmitGuess(ctx, "s-done", 42)
	require.NoError(t, err)

	// 结束后的猜测被拒绝，且不产生任何记录
	_, err = store.SubmitGuess(ctx, "s-done", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSessionFinished))

	count, err := repository.NewGuessAttemptRepository(db).CountBySessionID(ctx, "s-done")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubmitGuess_SessionNotFound(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)

	_, err := store.SubmitGuess(context.Background(), "missing", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
}

func TestSubmitGuess_ConcurrentOrdering(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-concurrent",
		MinRange:  intPtr(1),
		MaxRange:  intPtr(1000),
		Secret:    intPtr(1000),
	})
	require.NoError(t, err)

	// N个并发猜测（都猜不中），序号必须是1..N不重不漏
	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(guess int) {
			defer wg.Done()
			_, err := store.SubmitGuess(ctx, "s-concurrent", guess)
			assert.NoError(t, err)
		}(i + 1)
	}
	wg.Wait()

	attempts, err := repository.NewGuessAttemptRepository(db).FindBySessionID(ctx, "s-concurrent", nil)
	require.NoError(t, err)
	require.Len(t, attempts, n)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.Order)
	}

	session, err := store.GetSession(ctx, "s-concurrent")
	require.NoError(t, err)
	assert.Equal(t, n, session.Attempts)
	assert.Equal(t, n, session.ConsecutiveIncorrect)
}

func TestSubmitGuess_PublishesEvents(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-events",
		Secret:    intPtr(42),
	})
	require.NoError(t, err)

	ch, unsubscribe := store.Events().Subscribe("s-events")
	defer unsubscribe()

	_, err = store.SubmitGuess(ctx, "s-events", 10)
	require.NoError(t, err)
	_, err = store.SubmitGuess(ctx, "s-events", 42)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, models.FeedbackHigher, first.Feedback)
	assert.False(t, first.Finished)

	second := <-ch
	assert.Equal(t, 2, second.Order)
	assert.Equal(t, models.FeedbackEqual, second.Feedback)
	assert.True(t, second.Finished)
}

func TestMaybeIssueHint_Trigger(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-hint",
		Secret:    intPtr(50),
	})
	require.NoError(t, err)

	// 连续未中次数不足时不发放
	_, err = store.SubmitGuess(ctx, "s-hint", 10)
	require.NoError(t, err)
	hint, err := store.MaybeIssueHint(ctx, "s-hint")
	require.NoError(t, err)
	assert.Nil(t, hint)

	_, err = store.SubmitGuess(ctx, "s-hint", 20)
	require.NoError(t, err)
	_, err = store.SubmitGuess(ctx, "s-hint", 90)
	require.NoError(t, err)

	// 达到触发阈值（3次）后发放区间提示
	hint, err = store.MaybeIssueHint(ctx, "s-hint")
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, models.HintTypeRange, hint.Type)
	assert.Equal(t, "the number is between 21 and 89", hint.Text)

	// 发放不影响连续未中计数，只有猜中才清零
	session, err := store.GetSession(ctx, "s-hint")
	require.NoError(t, err)
	assert.Equal(t, 1, session.HintsUsed)
	assert.Equal(t, 3, session.ConsecutiveIncorrect)

	// 同一轮计数仍超过阈值，再次请求轮换发放下一个策略
	hint, err = store.MaybeIssueHint(ctx, "s-hint")
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, models.HintTypeParity, hint.Type)
	assert.Equal(t, "the number is even", hint.Text)

	// 猜中后计数清零
	_, err = store.SubmitGuess(ctx, "s-hint", 50)
	require.NoError(t, err)
	session, err = store.GetSession(ctx, "s-hint")
	require.NoError(t, err)
	assert.Equal(t, 0, session.ConsecutiveIncorrect)
}

func TestMaybeIssueHint_StrategyRotation(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-rotate",
		Secret:    intPtr(50),
	})
	require.NoError(t, err)

	for _, g := range []int{10, 20, 30} {
		_, err = store.SubmitGuess(ctx, "s-rotate", g)
		require.NoError(t, err)
	}
	hint, err := store.MaybeIssueHint(ctx, "s-rotate")
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, models.HintTypeRange, hint.Type)

	// 第二次发放轮换到奇偶策略
	for _, g := range []int{40, 45, 48} {
		_, err = store.SubmitGuess(ctx, "s-rotate", g)
		require.NoError(t, err)
	}
	hint, err = store.MaybeIssueHint(ctx, "s-rotate")
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, models.HintTypeParity, hint.Type)
	assert.Equal(t, "the number is even", hint.Text)
}

func TestMaybeIssueHint_Disabled(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	// 触发阈值设为0关闭提示功能
	err := store.UpdateConfig(ctx, &models.GameConfig{
		MinRange:         1,
		MaxRange:         100,
		HintTriggerCount: 0,
		MsgLower:         "try a smaller number",
		MsgHigher:        "try a larger number",
		MsgEqual:         "correct",
	})
	require.NoError(t, err)

	_, err = store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-nohint",
		Secret:    intPtr(50),
	})
	require.NoError(t, err)

	for _, g := range []int{10, 20, 30, 40, 45} {
		_, err = store.SubmitGuess(ctx, "s-nohint", g)
		require.NoError(t, err)
	}

	hint, err := store.MaybeIssueHint(ctx, "s-nohint")
	require.NoError(t, err)
	assert.Nil(t, hint)
}

func TestMaybeIssueHint_FinishedSession(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-hint-done",
		Secret:    intPtr(42),
	})
	require.NoError(t, err)
	_, err = store.SubmitGuess(ctx, "s-hint-done", 42)
	require.NoError(t, err)

	_, err = store.MaybeIssueHint(ctx, "s-hint-done")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSessionFinished))
}

func TestGetSession_Detail(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-detail",
		Secret:    intPtr(50),
	})
	require.NoError(t, err)

	for _, g := range []int{10, 90, 50} {
		_, err = store.SubmitGuess(ctx, "s-detail", g)
		require.NoError(t, err)
	}

	session, err := store.GetSession(ctx, "s-detail")
	require.NoError(t, err)
	require.Len(t, session.Guesses, 3)
	assert.Equal(t, 1, session.Guesses[0].Order)
	assert.Equal(t, models.FeedbackEqual, session.Guesses[2].Feedback)

	_, err = store.GetSession(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
}

func TestBestScores(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	sessionRepo := repository.NewGameSessionRepository(db)
	require.NoError(t, sessionRepo.Create(ctx, repository.CreateFinishedSession("s-a", 2, 50)))
	require.NoError(t, sessionRepo.Create(ctx, repository.CreateFinishedSession("s-b", 2, 30)))
	require.NoError(t, sessionRepo.Create(ctx, repository.CreateFinishedSession("s-c", 1, 100)))

	scores, err := store.BestScores(ctx, 10)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "s-c", scores[0].SessionID)
	assert.Equal(t, "s-b", scores[1].SessionID)
	assert.Equal(t, "s-a", scores[2].SessionID)

	// limit <= 0 时回退到默认值10
	scores, err = store.BestScores(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, scores, 3)
}

func TestGetStatistics_Empty(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)

	stats, err := store.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSessions)
	assert.Nil(t, stats.AvgAttempts)
}

func TestRateMatch(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, &CreateSessionRequest{
		SessionID: "s-rate",
		Secret:    intPtr(42),
	})
	require.NoError(t, err)
	_, err = store.SubmitGuess(ctx, "s-rate", 42)
	require.NoError(t, err)

	// 评分必须在1-5之间
	err = store.RateMatch(ctx, "s-rate", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidRating))
	err = store.RateMatch(ctx, "s-rate", 6)
	assert.True(t, errors.Is(err, errors.ErrInvalidRating))

	require.NoError(t, store.RateMatch(ctx, "s-rate", 4))

	record, err := repository.NewMatchHistoryRepository(db).FindBySessionID(ctx, "s-rate")
	require.NoError(t, err)
	require.NotNil(t, record.DifficultyRating)
	assert.Equal(t, 4, *record.DifficultyRating)

	// 未归档的会话无法评分
	err = store.RateMatch(ctx, "missing", 3)
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
}

func TestCleanupStale(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	sessionRepo := repository.NewGameSessionRepository(db)
	attemptRepo := repository.NewGuessAttemptRepository(db)

	// 超期的进行中会话（带猜测记录）
	stale := repository.CreateTestSession("s-stale", 42)
	stale.StartedAt = time.Now().Add(-25 * time.Hour)
	require.NoError(t, sessionRepo.Create(ctx, stale))
	require.NoError(t, attemptRepo.Create(ctx, &models.GuessAttempt{
		SessionID:   "s-stale",
		Order:       1,
		Guess:       10,
		Feedback:    models.FeedbackHigher,
		SubmittedAt: time.Now(),
	}))

	// 未超期的进行中会话
	fresh := repository.CreateTestSession("s-fresh", 42)
	fresh.StartedAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, sessionRepo.Create(ctx, fresh))

	// 超期但已结束的会话不清理
	old := repository.CreateFinishedSession("s-old-done", 3, 60)
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, sessionRepo.Create(ctx, old))

	deleted, err := store.CleanupStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// 超期会话连同猜测记录一起删除
	_, err = sessionRepo.FindBySessionID(ctx, "s-stale")
	assert.Error(t, err)
	count, err := attemptRepo.CountBySessionID(ctx, "s-stale")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// 其余会话保留
	_, err = sessionRepo.FindBySessionID(ctx, "s-fresh")
	assert.NoError(t, err)
	_, err = sessionRepo.FindBySessionID(ctx, "s-old-done")
	assert.NoError(t, err)
}

func TestCleanupStale_SkipsConcurrentlyFinished(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	sessionRepo := repository.NewGameSessionRepository(db)

	// 扫描名单产生后、删除执行前，会话可能已被猜中结束
	// cleanupOne 在锁内复查状态，这里直接模拟复查阶段看到的已结束会话
	stale := repository.CreateTestSession("s-race", 42)
	stale.StartedAt = time.Now().Add(-25 * time.Hour)
	require.NoError(t, sessionRepo.Create(ctx, stale))

	now := time.Now()
	require.NoError(t, sessionRepo.UpdateBySessionID(ctx, "s-race", map[string]interface{}{
		"status":   models.SessionFinished,
		"ended_at": now,
	}))

	removed, err := store.cleanupOne(ctx, "s-race", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = sessionRepo.FindBySessionID(ctx, "s-race")
	assert.NoError(t, err)
}

func TestUpdateConfig(t *testing.T) {
	store, db := newTestStore(t)
	defer repository.CleanupTestDB(db)
	ctx := context.Background()

	// 非法区间拒绝
	err := store.UpdateConfig(ctx, &models.GameConfig{MinRange: 10, MaxRange: 10})
	assert.True(t, errors.Is(err, errors.ErrInvalidRange))

	// 会话创建时固化区间，配置更新不回溯
	before, err := store.CreateSession(ctx, &CreateSessionRequest{SessionID: "s-before"})
	require.NoError(t, err)
	assert.Equal(t, 100, before.MaxRange)

	err = store.UpdateConfig(ctx, &models.GameConfig{
		MinRange:         1,
		MaxRange:         1000,
		HintTriggerCount: 5,
		MsgLower:         "lower",
		MsgHigher:        "higher",
		MsgEqual:         "bingo",
	})
	require.NoError(t, err)

	after, err := store.CreateSession(ctx, &CreateSessionRequest{SessionID: "s-after"})
	require.NoError(t, err)
	assert.Equal(t, 1000, after.MaxRange)

	found, err := store.GetSession(ctx, "s-before")
	require.NoError(t, err)
	assert.Equal(t, 100, found.MaxRange)
}
