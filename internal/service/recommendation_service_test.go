package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/siteforge/backend/internal/errors"
)

func newQuiz(t *testing.T, advisor Advisor, cfg RecommendationConfig) RecommendationService {
	t.Helper()
	return NewRecommendationService(catalogServiceFor(t, serviceCatalog), advisor, cfg)
}

// startAndAsk starts a session and fetches its first question.
func startAndAsk(t *testing.T, svc RecommendationService) *QuizSession {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	sess, err = svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, sess.Pending)
	return sess
}

func TestRecommendationService_Disabled(t *testing.T) {
	svc := NewRecommendationService(catalogServiceFor(t, serviceCatalog), nil, RecommendationConfig{})
	ctx := context.Background()

	assert.False(t, svc.Enabled())

	_, err := svc.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, "disabled", ierr.Code(err))
	assert.Equal(t, 503, ierr.HTTPStatusFromErr(err))

	_, err = svc.Answer(ctx, "x", "y")
	assert.Equal(t, "disabled", ierr.Code(err))
}

func TestRecommendationService_Start(t *testing.T) {
	svc := newQuiz(t, &mockAdvisor{}, RecommendationConfig{})

	sess, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.Enabled())
	assert.Len(t, sess.ID, 26)
	assert.Empty(t, sess.History)
	assert.Nil(t, sess.Pending)
	assert.False(t, sess.Finished)
	require.Len(t, sess.Scores, 2)
	assert.Equal(t, ProductScore{Product: "starter", Name: "Starter"}, sess.Scores[0])
	assert.Equal(t, ProductScore{Product: "business", Name: "Business"}, sess.Scores[1])
}

func TestRecommendationService_Start_EmptyCatalog(t *testing.T) {
	svc := NewRecommendationService(&mockCatalogService{}, &mockAdvisor{}, RecommendationConfig{})

	_, err := svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestRecommendationService_Get_GeneratesQuestionOnce(t *testing.T) {
	calls := 0
	advisor := &mockAdvisor{
		questionFunc: func(_ context.Context, history []QA, candidates []Candidate) (Question, error) {
			calls++
			assert.Empty(t, history)
			assert.Len(t, candidates, 2)
			return Question{Question: "How many pages?", Answers: []string{"Few", "Many"}}, nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{})

	sess := startAndAsk(t, svc)
	assert.Equal(t, "How many pages?", sess.Pending.Question)

	again, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Pending, again.Pending)
	assert.Equal(t, 1, calls)
}

func TestRecommendationService_Answer_FinishesOnThreshold(t *testing.T) {
	var explained Candidate
	advisor := &mockAdvisor{
		scoreFunc: func(_ context.Context, history []QA, _ []Candidate, previous []ProductScore) (map[string]float64, error) {
			require.Len(t, history, 1)
			assert.Equal(t, "High", history[0].Answer)
			assert.Len(t, previous, 2)
			return map[string]float64{"Business": 7, "Starter": 2, "Unknown": 99}, nil
		},
		explainFunc: func(_ context.Context, product Candidate, _ []QA) (string, error) {
			explained = product
			return "You want a large site", nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{})
	sess := startAndAsk(t, svc)

	got, err := svc.Answer(context.Background(), sess.ID, "High")
	require.NoError(t, err)

	assert.True(t, got.Finished)
	assert.Nil(t, got.Pending)
	assert.Equal(t, 1, got.QuestionCount)
	require.NotNil(t, got.Result)
	assert.Equal(t, "business", got.Result.Product)
	assert.Equal(t, float64(7), got.Result.Score)
	assert.Equal(t, "You want a large site", got.Result.Reason)
	assert.Equal(t, "Full featured site", explained.Description)

	_, err = svc.Answer(context.Background(), sess.ID, "High")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestRecommendationService_Answer_FinishesAfterMaxQuestions(t *testing.T) {
	advisor := &mockAdvisor{
		scoreFunc: func(_ context.Context, history []QA, _ []Candidate, _ []ProductScore) (map[string]float64, error) {
			return map[string]float64{"Starter": 1, "Business": float64(len(history))}, nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{MaxQuestions: 3})
	ctx := context.Background()
	sess := startAndAsk(t, svc)

	for i := 0; i < 3; i++ {
		require.NotNil(t, sess.Pending, "question %d", i+1)
		var err error
		sess, err = svc.Answer(ctx, sess.ID, sess.Pending.Answers[0])
		require.NoError(t, err)
	}

	assert.True(t, sess.Finished)
	assert.Equal(t, 3, sess.QuestionCount)
	assert.Len(t, sess.History, 3)
	require.NotNil(t, sess.Result)
	assert.Equal(t, "business", sess.Result.Product)
}

func TestRecommendationService_TieGoesToCatalogOrder(t *testing.T) {
	advisor := &mockAdvisor{
		scoreFunc: func(context.Context, []QA, []Candidate, []ProductScore) (map[string]float64, error) {
			return map[string]float64{"Starter": 5, "Business": 5}, nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{})
	sess := startAndAsk(t, svc)

	got, err := svc.Answer(context.Background(), sess.ID, "Low")
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, "starter", got.Result.Product)
}

func TestRecommendationService_Answer_Rejects(t *testing.T) {
	svc := newQuiz(t, &mockAdvisor{}, RecommendationConfig{})
	ctx := context.Background()

	started, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, started.ID, "Low")
	require.Error(t, err, "no question asked yet")
	assert.True(t, ierr.IsValidation(err))

	sess := startAndAsk(t, svc)
	_, err = svc.Answer(ctx, sess.ID, "Medium")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = svc.Answer(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", "Low")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestRecommendationService_ScoreFailureLeavesSessionUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		score func(context.Context, []QA, []Candidate, []ProductScore) (map[string]float64, error)
	}{
		{"collaborator error", func(context.Context, []QA, []Candidate, []ProductScore) (map[string]float64, error) {
			return nil, errors.New("connection reset")
		}},
		{"non-finite score", func(context.Context, []QA, []Candidate, []ProductScore) (map[string]float64, error) {
			return map[string]float64{"Starter": math.NaN()}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newQuiz(t, &mockAdvisor{scoreFunc: tt.score}, RecommendationConfig{})
			ctx := context.Background()
			sess := startAndAsk(t, svc)

			_, err := svc.Answer(ctx, sess.ID, "Low")
			require.Error(t, err)
			assert.True(t, ierr.IsCollaborator(err))
			assert.Equal(t, 502, ierr.HTTPStatusFromErr(err))

			after, err := svc.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, sess.History, after.History)
			assert.Equal(t, sess.Scores, after.Scores)
			assert.Equal(t, 0, after.QuestionCount)
			assert.Equal(t, sess.Pending, after.Pending)
		})
	}
}

func TestRecommendationService_FollowUpFailureKeepsAnswer(t *testing.T) {
	fail := false
	advisor := &mockAdvisor{
		questionFunc: func(context.Context, []QA, []Candidate) (Question, error) {
			if fail {
				return Question{}, errors.New("timeout")
			}
			return Question{Question: "Budget?", Answers: []string{"Low", "High"}}, nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{})
	ctx := context.Background()
	sess := startAndAsk(t, svc)

	fail = true
	got, err := svc.Answer(ctx, sess.ID, "Low")
	require.NoError(t, err)
	assert.Len(t, got.History, 1)
	assert.Nil(t, got.Pending)

	_, err = svc.Get(ctx, sess.ID)
	require.Error(t, err)
	assert.True(t, ierr.IsCollaborator(err))

	fail = false
	got, err = svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Pending)
	assert.Len(t, got.History, 1)
}

func TestRecommendationService_MalformedQuestion(t *testing.T) {
	questions := []Question{
		{Question: "", Answers: []string{"a", "b"}},
		{Question: "Only one?", Answers: []string{"a"}},
		{Question: "Duplicates?", Answers: []string{"a", "a"}},
		{Question: "Blank?", Answers: []string{"a", ""}},
		{Question: "Too many?", Answers: []string{"a", "b", "c", "d", "e", "f"}},
	}
	for _, q := range questions {
		advisor := &mockAdvisor{questionFunc: func(context.Context, []QA, []Candidate) (Question, error) { return q, nil }}
		svc := newQuiz(t, advisor, RecommendationConfig{})
		sess, err := svc.Start(context.Background())
		require.NoError(t, err)

		_, err = svc.Get(context.Background(), sess.ID)
		require.Error(t, err, q.Question)
		assert.True(t, ierr.IsCollaborator(err), q.Question)
	}
}

func TestRecommendationService_CallTimeout(t *testing.T) {
	advisor := &mockAdvisor{
		questionFunc: func(ctx context.Context, _ []QA, _ []Candidate) (Question, error) {
			<-ctx.Done()
			return Question{}, ctx.Err()
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{CallTimeout: 10 * time.Millisecond})
	sess, err := svc.Start(context.Background())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), sess.ID)
	require.Error(t, err)
	assert.True(t, ierr.IsCollaborator(err))
}

func TestRecommendationService_End(t *testing.T) {
	svc := newQuiz(t, &mockAdvisor{}, RecommendationConfig{})
	ctx := context.Background()
	sess := startAndAsk(t, svc)

	require.NoError(t, svc.End(ctx, sess.ID))

	_, err := svc.Get(ctx, sess.ID)
	assert.True(t, ierr.IsNotFound(err))
	assert.True(t, ierr.IsNotFound(svc.End(ctx, sess.ID)))
}

func TestRecommendationService_SessionsAreIndependent(t *testing.T) {
	advisor := &mockAdvisor{
		scoreFunc: func(_ context.Context, history []QA, _ []Candidate, _ []ProductScore) (map[string]float64, error) {
			if history[0].Answer == "High" {
				return map[string]float64{"Business": 1}, nil
			}
			return map[string]float64{"Starter": 1}, nil
		},
	}
	svc := newQuiz(t, advisor, RecommendationConfig{})
	ctx := context.Background()
	a := startAndAsk(t, svc)
	b := startAndAsk(t, svc)
	require.NotEqual(t, a.ID, b.ID)

	a, err := svc.Answer(ctx, a.ID, "High")
	require.NoError(t, err)
	b, err = svc.Answer(ctx, b.ID, "Low")
	require.NoError(t, err)

	assert.Equal(t, float64(1), a.Scores[1].Score)
	assert.Equal(t, float64(0), a.Scores[0].Score)
	assert.Equal(t, float64(1), b.Scores[0].Score)
	assert.Equal(t, float64(0), b.Scores[1].Score)
}

func TestQuizSession_Leader(t *testing.T) {
	s := &QuizSession{}
	_, ok := s.Leader()
	assert.False(t, ok)

	s.Scores = []ProductScore{{Product: "a", Score: 1}, {Product: "b", Score: 3}, {Product: "c", Score: 3}}
	leader, ok := s.Leader()
	assert.True(t, ok)
	assert.Equal(t, "b", leader.Product)
}
