package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/repository"
	"ielts_exam_backend/internal/util"
	"ielts_exam_backend/pkg/logger"
	"ielts_exam_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// TestContentService 负责读取并组装完整试卷树
type TestContentService struct {
	Tests   *repository.TestRepository
	Storage *StorageService
	Redis   *redis.Client
	Cfg     *config.Config
	DB      *gorm.DB
}

func NewTestContentService(tests *repository.TestRepository, storage *StorageService, rdb *redis.Client, cfg *config.Config, db *gorm.DB) *TestContentService {
	return &TestContentService{Tests: tests, Storage: storage, Redis: rdb, Cfg: cfg, DB: db}
}

func treeCacheKey(kind model.TestKind, testID string) string {
	return fmt.Sprintf("testtree:%s:%s", kind, testID)
}

// GetFullTest hydrates one test into its nested tree. Test, section and
// question reads are load-bearing and fail the call; the four child tables
// degrade to empty so a half-authored test still renders.
func (s *TestContentService) GetFullTest(ctx context.Context, kind model.TestKind, testID string) (*TestTree, error) {
	if !kind.Valid() {
		return nil, util.ValidationError("unknown test kind %q", kind)
	}

	key := treeCacheKey(kind, testID)
	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var tree TestTree
			if err := json.Unmarshal([]byte(raw), &tree); err == nil {
				monitoring.TreeCacheCounter.WithLabelValues("hit").Inc()
				return &tree, nil
			}
			// 缓存内容损坏, 删除后重建
			s.Redis.Del(ctx, key)
		}
		monitoring.TreeCacheCounter.WithLabelValues("miss").Inc()
	}

	tree, err := s.buildTree(ctx, kind, testID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(tree); err == nil {
			if err := s.Redis.Set(ctx, key, raw, s.Cfg.Content.TreeCacheTTL()).Err(); err != nil {
				logger.Log.Warn("tree cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	return tree, nil
}

func (s *TestContentService) buildTree(ctx context.Context, kind model.TestKind, testID string) (*TestTree, error) {
	test, err := s.Tests.FindTest(kind, testID)
	if err != nil {
		return nil, err
	}

	if kind == model.KindWriting {
		return writingTree(test), nil
	}

	sections, err := s.Tests.SectionsPartOrdered(kind, testID)
	if err != nil {
		// 排序列缺失时退化为单一序号排序
		logger.Log.Warn("part-ordered section query failed, falling back",
			zap.String("test_id", testID), zap.Error(err))
		sections, err = s.Tests.SectionsOrdinalOrdered(kind, testID)
		if err != nil {
			return nil, err
		}
	}
	if len(sections) == 0 {
		return assembleTree(kind, test, nil, nil, nil, nil, nil, nil), nil
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}

	questions, err := s.Tests.QuestionsBySections(kind, sectionIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return assembleTree(kind, test, sections, nil, nil, nil, nil, nil), nil
	}

	questionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}

	var (
		answers  []model.Answer
		options  []model.Option
		mItems   []model.MatchingItem
		mOptions []model.MatchingOption
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		answers = optionalRows("answers", func() ([]model.Answer, error) {
			return s.Tests.AnswersByQuestions(kind, questionIDs)
		})
		return nil
	})
	g.Go(func() error {
		options = optionalRows("options", func() ([]model.Option, error) {
			return s.Tests.OptionsByQuestions(kind, questionIDs)
		})
		return nil
	})
	g.Go(func() error {
		mItems = optionalRows("matching_items", func() ([]model.MatchingItem, error) {
			return s.Tests.MatchingItemsByQuestions(kind, questionIDs)
		})
		return nil
	})
	g.Go(func() error {
		mOptions = optionalRows("matching_options", func() ([]model.MatchingOption, error) {
			return s.Tests.MatchingOptionsByQuestions(kind, questionIDs)
		})
		return nil
	})
	_ = g.Wait()

	return assembleTree(kind, test, sections, questions, answers, options, mItems, mOptions), nil
}

// optionalRows downgrades a child-table read failure to an empty slice so
// one broken table cannot take down the whole tree.
func optionalRows[T any](table string, fetch func() ([]T, error)) []T {
	rows, err := fetch()
	if err != nil {
		logger.Log.Warn("optional child fetch degraded to empty",
			zap.String("table", table), zap.Error(err))
		return nil
	}
	return rows
}

// InvalidateTree drops the memoized tree after any content mutation.
func (s *TestContentService) InvalidateTree(ctx context.Context, kind model.TestKind, testID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, treeCacheKey(kind, testID)).Err(); err != nil {
		logger.Log.Warn("tree cache invalidation failed",
			zap.String("test_id", testID), zap.Error(err))
	}
}

// ListTests returns the flat catalog rows for the teacher panel.
func (s *TestContentService) ListTests(ctx context.Context, kind model.TestKind) ([]model.Test, error) {
	if !kind.Valid() {
		return nil, util.ValidationError("unknown test kind %q", kind)
	}
	return s.Tests.ListTests(kind)
}

// CreateTest inserts a bare test row; content arrives later via replace.
func (s *TestContentService) CreateTest(ctx context.Context, kind model.TestKind, test *model.Test) error {
	if !kind.Valid() {
		return util.ValidationError("unknown test kind %q", kind)
	}
	if test.Title == "" {
		return util.ValidationError("title is required")
	}
	if test.Duration <= 0 {
		test.Duration = defaultDuration(kind)
	}
	return s.Tests.CreateTest(kind, test)
}

func defaultDuration(kind model.TestKind) int {
	if kind == model.KindListening {
		return 30
	}
	return 60
}

// UpdateTestScalars patches title/duration/description without touching
// the content tree.
func (s *TestContentService) UpdateTestScalars(ctx context.Context, kind model.TestKind, testID string, fields map[string]interface{}) error {
	if !kind.Valid() {
		return util.ValidationError("unknown test kind %q", kind)
	}
	if err := s.Tests.UpdateTestScalars(kind, testID, fields); err != nil {
		return err
	}
	s.InvalidateTree(ctx, kind, testID)
	return nil
}

func (s *TestContentService) DeleteTest(ctx context.Context, kind model.TestKind, testID string) error {
	if !kind.Valid() {
		return util.ValidationError("unknown test kind %q", kind)
	}
	if err := s.Tests.DeleteTest(kind, testID); err != nil {
		return err
	}
	s.InvalidateTree(ctx, kind, testID)
	return nil
}

// AudioUpload carries one uploaded audio stream plus an optional local
// temp path used for probing duration.
type AudioUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
	LocalPath   string
}

// UploadAudio stores the file and points the listening test at it.
func (s *TestContentService) UploadAudio(ctx context.Context, kind model.TestKind, testID string, audio *AudioUpload) (string, error) {
	if kind != model.KindListening {
		return "", util.ValidationError("audio is only supported for listening tests")
	}
	if _, err := s.Tests.FindTest(kind, testID); err != nil {
		return "", err
	}

	url, err := s.storeAudio(ctx, testID, audio)
	if err != nil {
		return "", err
	}

	if err := s.Tests.UpdateAudioURL(kind, testID, url); err != nil {
		return "", err
	}
	s.InvalidateTree(ctx, kind, testID)
	return url, nil
}

func (s *TestContentService) storeAudio(ctx context.Context, testID string, audio *AudioUpload) (string, error) {
	if !util.HasAllowedExtension(audio.Filename, util.AllowedAudioExtensions) {
		return "", util.ValidationError("unsupported audio file %q", audio.Filename)
	}

	// 扩展名可伪造, 再嗅探文件头
	reader := audio.Reader
	if audio.LocalPath != "" {
		f, err := os.Open(audio.LocalPath)
		if err != nil {
			return "", err
		}
		mime, merr := util.ValidateMimeType(f, []string{util.MimeAudio, util.MimeOctetStream})
		f.Close()
		if merr != nil || !util.IsAudio(mime) {
			return "", util.ValidationError("file %q is not audio content (%s)", audio.Filename, mime)
		}
	} else {
		var head bytes.Buffer
		mime, merr := util.ValidateMimeType(io.TeeReader(audio.Reader, &head), []string{util.MimeAudio, util.MimeOctetStream})
		if merr != nil || !util.IsAudio(mime) {
			return "", util.ValidationError("file %q is not audio content (%s)", audio.Filename, mime)
		}
		reader = io.MultiReader(bytes.NewReader(head.Bytes()), audio.Reader)
	}

	if audio.LocalPath != "" {
		if info, err := util.GetAudioInfo(audio.LocalPath); err == nil {
			logger.Log.Info("audio probed",
				zap.String("test_id", testID),
				zap.Float64("duration_s", info.Duration),
				zap.String("format", info.Format))
		} else {
			logger.Log.Warn("audio probe failed", zap.Error(err))
		}
	}

	objectName := fmt.Sprintf("audio/%s/%d_%s_%s", testID, time.Now().Unix(), model.GenerateUUID()[:8], audio.Filename)
	url, err := s.Storage.Upload(ctx, objectName, reader, audio.Size, audio.ContentType)
	if err != nil {
		return "", fmt.Errorf("上传音频失败: %w", err)
	}
	return url, nil
}
