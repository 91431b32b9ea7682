package service

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
)

// QA is one answered question of a quiz.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Question is a question proposed by the advisor with its answer choices.
type Question struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

// Candidate is a product as the advisor sees it.
type Candidate struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductScore is the running score of one candidate.
type ProductScore struct {
	Product string  `json:"product"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
}

// Recommendation is the final answer of a quiz.
type Recommendation struct {
	Product string  `json:"product"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// QuizSession is the state of one recommendation quiz.
type QuizSession struct {
	ID            string          `json:"id"`
	History       []QA            `json:"history"`
	Scores        []ProductScore  `json:"scores"`
	QuestionCount int             `json:"question_count"`
	Pending       *Question       `json:"pending,omitempty"`
	Finished      bool            `json:"finished"`
	Result        *Recommendation `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	candidates []Candidate
}

func (s *QuizSession) clone() *QuizSession {
	out := *s
	out.History = slices.Clone(s.History)
	out.Scores = slices.Clone(s.Scores)
	if s.Pending != nil {
		q := Question{Question: s.Pending.Question, Answers: slices.Clone(s.Pending.Answers)}
		out.Pending = &q
	}
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	return &out
}

// Leader returns the highest scoring candidate. Ties go to the candidate
// that comes first in catalog order.
func (s *QuizSession) Leader() (ProductScore, bool) {
	if len(s.Scores) == 0 {
		return ProductScore{}, false
	}
	best := s.Scores[0]
	for _, ps := range s.Scores[1:] {
		if ps.Score > best.Score {
			best = ps
		}
	}
	return best, true
}

// Advisor is the external scoring and questioning collaborator of the quiz.
// Score returns scores keyed by product name; names it does not know are
// ignored and products it leaves out keep their previous score.
type Advisor interface {
	Score(ctx context.Context, history []QA, candidates []Candidate, previous []ProductScore) (map[string]float64, error)
	NextQuestion(ctx context.Context, history []QA, candidates []Candidate) (Question, error)
	Explain(ctx context.Context, product Candidate, history []QA) (string, error)
}

// RecommendationConfig holds the quiz limits.
type RecommendationConfig struct {
	MaxQuestions   int
	ScoreThreshold float64
	SessionTTL     time.Duration
	CallTimeout    time.Duration
}

// RecommendationService は商品推薦クイズのインターフェース
type RecommendationService interface {
	Enabled() bool
	Start(ctx context.Context) (*QuizSession, error)
	Get(ctx context.Context, id string) (*QuizSession, error)
	Answer(ctx context.Context, id string, answer string) (*QuizSession, error)
	End(ctx context.Context, id string) error
}

// RecommendationServiceImpl は RecommendationService の実装。
// セッションは TTL 付きキャッシュに保持し、更新はコピーに対して行う
type RecommendationServiceImpl struct {
	catalog  CatalogService
	advisor  Advisor
	cfg      RecommendationConfig
	sessions *cache.Cache
}

type sessionEntry struct {
	mu      sync.Mutex
	session *QuizSession
}

// NewRecommendationService は RecommendationServiceImpl を生成する。
// advisor が nil の場合、推薦機能は無効になる
func NewRecommendationService(catalog CatalogService, advisor Advisor, cfg RecommendationConfig) RecommendationService {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 5
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 5
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &RecommendationServiceImpl{
		catalog:  catalog,
		advisor:  advisor,
		cfg:      cfg,
		sessions: cache.New(cfg.SessionTTL, cfg.SessionTTL),
	}
}

func (s *RecommendationServiceImpl) Enabled() bool { return s.advisor != nil }

// Start は新しいクイズセッションを作成する。最初の質問は Get で生成される
func (s *RecommendationServiceImpl) Start(ctx context.Context) (*QuizSession, error) {
	if err := s.checkEnabled(); err != nil {
		return nil, err
	}
	res, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	if res.Catalog.Products.Len() == 0 {
		return nil, ierr.NewError("catalog has no products").
			WithHint("There are no products to recommend").
			Mark(ierr.ErrValidation)
	}

	sess := &QuizSession{
		ID:        ulid.Make().String(),
		History:   []QA{},
		CreatedAt: time.Now().UTC(),
	}
	res.Catalog.Products.Each(func(key string, p model.Product) bool {
		sess.candidates = append(sess.candidates, Candidate{Key: key, Name: p.Name, Description: p.Description})
		sess.Scores = append(sess.Scores, ProductScore{Product: key, Name: p.Name})
		return true
	})
	s.sessions.Set(sess.ID, &sessionEntry{session: sess}, cache.DefaultExpiration)

	slog.InfoContext(ctx, "quiz session started", "session", sess.ID, "candidates", len(sess.candidates))
	return sess.clone(), nil
}

// Get はセッションを返す。保留中の質問や最終結果が未生成であれば生成する
func (s *RecommendationServiceImpl) Get(ctx context.Context, id string) (*QuizSession, error) {
	if err := s.checkEnabled(); err != nil {
		return nil, err
	}
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	next, err := s.prepare(ctx, entry.session)
	if err != nil {
		return nil, err
	}
	entry.session = next
	return next.clone(), nil
}

// Answer は保留中の質問への回答を記録し、スコアを更新する。
// 協調先の呼び出しに失敗した場合、セッションは変更されない
func (s *RecommendationServiceImpl) Answer(ctx context.Context, id string, answer string) (*QuizSession, error) {
	if err := s.checkEnabled(); err != nil {
		return nil, err
	}
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	cur := entry.session
	if cur.Finished {
		return nil, ierr.NewError("quiz already finished").
			WithHint("This quiz is already finished").
			Mark(ierr.ErrValidation)
	}
	if cur.Pending == nil {
		return nil, ierr.NewError("no pending question").
			WithHint("There is no question to answer yet").
			Mark(ierr.ErrValidation)
	}
	if !slices.Contains(cur.Pending.Answers, answer) {
		return nil, ierr.NewErrorf("answer %q is not a choice of the pending question", answer).
			WithHint("Pick one of the offered answers").
			WithReportableDetails(map[string]any{"answers": cur.Pending.Answers}).
			Mark(ierr.ErrValidation)
	}

	next := cur.clone()
	next.History = append(next.History, QA{Question: cur.Pending.Question, Answer: answer})

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	scores, err := s.advisor.Score(callCtx, next.History, next.candidates, next.Scores)
	cancel()
	if err != nil {
		return nil, collaboratorError(err, "score update")
	}
	if err := applyScores(next.Scores, scores); err != nil {
		return nil, err
	}

	next.QuestionCount++
	next.Pending = nil
	if leader, ok := next.Leader(); ok && leader.Score >= s.cfg.ScoreThreshold {
		next.Finished = true
	}
	if next.QuestionCount >= s.cfg.MaxQuestions {
		next.Finished = true
	}
	entry.session = next
	s.touch(id, entry)

	// The answer is recorded. Preparing the follow-up is best effort and is
	// retried by Get.
	prepared, err := s.prepare(ctx, next)
	if err != nil {
		slog.WarnContext(ctx, "quiz follow-up not prepared", "session", id, "error", err)
		return next.clone(), nil
	}
	entry.session = prepared
	return prepared.clone(), nil
}

// End はセッションを破棄する
func (s *RecommendationServiceImpl) End(ctx context.Context, id string) error {
	if err := s.checkEnabled(); err != nil {
		return err
	}
	if _, err := s.entry(id); err != nil {
		return err
	}
	s.sessions.Delete(id)
	slog.InfoContext(ctx, "quiz session ended", "session", id)
	return nil
}

// prepare fills in whatever the session is waiting for: the next question
// or the final recommendation. It returns a new session value and leaves
// cur untouched.
func (s *RecommendationServiceImpl) prepare(ctx context.Context, cur *QuizSession) (*QuizSession, error) {
	switch {
	case cur.Finished && cur.Result != nil:
		return cur, nil
	case !cur.Finished && cur.Pending != nil:
		return cur, nil
	}

	next := cur.clone()
	if !next.Finished && next.QuestionCount >= s.cfg.MaxQuestions {
		next.Finished = true
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if next.Finished {
		leader, _ := next.Leader()
		cand, _ := lo.Find(next.candidates, func(c Candidate) bool { return c.Key == leader.Product })
		reason, err := s.advisor.Explain(callCtx, cand, next.History)
		if err != nil {
			return nil, collaboratorError(err, "final recommendation")
		}
		next.Result = &Recommendation{Product: leader.Product, Name: leader.Name, Score: leader.Score, Reason: reason}
		slog.InfoContext(ctx, "quiz session finished", "session", next.ID, "product", leader.Product, "score", leader.Score)
		return next, nil
	}

	q, err := s.advisor.NextQuestion(callCtx, next.History, next.candidates)
	if err != nil {
		return nil, collaboratorError(err, "next question")
	}
	if err := checkQuestion(q); err != nil {
		return nil, err
	}
	next.Pending = &q
	return next, nil
}

func (s *RecommendationServiceImpl) entry(id string) (*sessionEntry, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ierr.NewErrorf("quiz session %q not found", id).
			WithHint("The quiz session does not exist or has expired").
			Mark(ierr.ErrNotFound)
	}
	return v.(*sessionEntry), nil
}

// touch extends the session lifetime on activity.
func (s *RecommendationServiceImpl) touch(id string, entry *sessionEntry) {
	s.sessions.Set(id, entry, cache.DefaultExpiration)
}

func (s *RecommendationServiceImpl) checkEnabled() error {
	if s.advisor == nil {
		return ierr.NewError("recommendation advisor not configured").
			WithHint("Product recommendations are not available").
			Mark(ierr.ErrDisabled)
	}
	return nil
}

// applyScores merges collaborator scores into scores in place. Unknown
// names are ignored. A non-finite score rejects the whole update.
func applyScores(scores []ProductScore, update map[string]float64) error {
	for name, v := range update {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ierr.NewErrorf("non-finite score %v for %q", v, name).
				WithHint("The recommendation service returned an invalid answer; please retry").
				Mark(ierr.ErrCollaborator)
		}
	}
	for i := range scores {
		if v, ok := update[scores[i].Name]; ok {
			scores[i].Score = v
		}
	}
	return nil
}

func checkQuestion(q Question) error {
	answers := lo.Uniq(lo.Compact(q.Answers))
	if q.Question == "" || len(answers) != len(q.Answers) || len(answers) < 2 || len(answers) > 5 {
		return ierr.NewErrorf("malformed question: %q with %d answers", q.Question, len(q.Answers)).
			WithHint("The recommendation service returned an invalid question; please retry").
			Mark(ierr.ErrCollaborator)
	}
	return nil
}

func collaboratorError(err error, step string) error {
	slog.Warn("recommendation collaborator failed", "step", step, "error", err)
	if ierr.IsCollaborator(err) {
		return err
	}
	return ierr.WithError(err).
		WithHintf("The recommendation service failed during %s; please retry", step).
		Mark(ierr.ErrCollaborator)
}
