package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"ielts_exam_backend/internal/util"
	"ielts_exam_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestRenderContentErrorStatus(t *testing.T) {
	c := &TestController{}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"missing test sentinel", util.ErrTestNotFound, http.StatusNotFound},
		{"raw store not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"rejected payload", util.ValidationError("broken"), http.StatusBadRequest},
		{"storage failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			c.renderContentError(ctx, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
