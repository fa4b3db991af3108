package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	// 测试基本错误创建
	err := New(ErrInvalidRange)
	suite.NotNil(err)
	suite.Equal(ErrInvalidRange, err.Code)
	suite.Equal("无效的数字区间", err.Message)
	suite.Empty(err.Details)

	// 测试带详情的错误
	err = New(ErrSessionNotFound, "会话 abc 不存在")
	suite.NotNil(err)
	suite.Equal(ErrSessionNotFound, err.Code)
	suite.Equal("会话不存在", err.Message)
	suite.Equal("会话 abc 不存在", err.Details)

	// 测试多个详情
	err = New(ErrDatabaseConnect, "连接失败", "主机: localhost", "端口: 3306")
	suite.Equal("连接失败; 主机: localhost; 端口: 3306", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidRange, "区间 [%d, %d] 无效", 100, 1)
	suite.NotNil(err)
	suite.Equal(ErrInvalidRange, err.Code)
	suite.Equal("区间 [100, 1] 无效", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	// 包装标准错误
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	nilErr := Wrap(nil, ErrUnknown)
	suite.Nil(nilErr)

	// 包装已有的AppError
	appErr := New(ErrSessionNotFound, "会话不存在")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrSessionNotFound, wrappedAppErr.Code) // 保留原始错误码
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrSessionFinished)
	suite.True(Is(err, ErrSessionFinished))
	suite.False(Is(err, ErrSessionNotFound))
	suite.False(Is(nil, ErrSessionFinished))

	// 标准错误不匹配任何错误码
	stdErr := errors.New("普通错误")
	suite.False(Is(stdErr, ErrSessionFinished))
}

// 测试错误码获取
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrorCode(0), GetCode(nil))
	suite.Equal(ErrInvalidRange, GetCode(New(ErrInvalidRange)))
	suite.Equal(ErrUnknown, GetCode(errors.New("普通错误")))
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	suite.Equal(404, New(ErrSessionNotFound).HTTPStatus())
	suite.Equal(409, New(ErrSessionExists).HTTPStatus())
	suite.Equal(409, New(ErrSessionFinished).HTTPStatus())
	suite.Equal(400, New(ErrInvalidRange).HTTPStatus())
	suite.Equal(400, New(ErrSecretOutOfRange).HTTPStatus())
	suite.Equal(401, New(ErrTokenInvalid).HTTPStatus())
	suite.Equal(503, New(ErrDatabaseQuery).HTTPStatus())
}

// 测试可重试判断
func (suite *ErrorsTestSuite) TestIsRetryable() {
	// 游戏类错误不可重试
	suite.False(IsRetryable(New(ErrInvalidRange)))
	suite.False(IsRetryable(New(ErrSessionFinished)))
	suite.False(IsRetryable(New(ErrSessionExists)))

	// 连接类错误可重试
	suite.True(IsRetryable(New(ErrDatabaseConnect)))
	suite.True(IsRetryable(New(ErrTimeout)))

	suite.False(IsRetryable(nil))
}

// 测试错误消息格式
func (suite *ErrorsTestSuite) TestErrorString() {
	err := New(ErrSecretOutOfRange)
	suite.Equal("[2001] 秘密数字不在区间内", err.Error())

	err = New(ErrSecretOutOfRange, "secret=150 range=[1,100]")
	suite.Equal("[2001] 秘密数字不在区间内: secret=150 range=[1,100]", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("底层错误")
	wrapped := Wrap(originalErr, ErrTransaction)
	suite.Equal(originalErr, wrapped.Unwrap())
	suite.True(errors.Is(wrapped, originalErr))
}

// TestErrorsTestSuite 运行测试套件
func TestErrorsTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
