package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/notify"
	"github.com/sells-group/safer-cli/internal/verify"
)

// --- Session Mock ---

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Submit(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockSession) HasMarker(ctx context.Context, marker verify.Marker) bool {
	return m.Called(ctx, marker).Bool(0)
}

func (m *mockSession) ReadField(ctx context.Context, f verify.Field) (string, bool) {
	args := m.Called(ctx, f)
	return args.String(0), args.Bool(1)
}

func (m *mockSession) FetchDetailText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

const detailText = "Legal Name: Acme LLC\nU.S. DOT#: 12345\nAddress: 1 Main St\nSpringfield\nTelephone: (555) 123-4567\nEmail: a@b.com\n"

var tmpl = notify.Template{Subject: "Loads for {{customer_name}}", Body: "Hi {{customer_name}}"}

// eligible primes the session to classify as Verified.
func eligible(s *mockSession) {
	s.On("HasMarker", mock.Anything, verify.MarkerNotFound).Return(false)
	s.On("HasMarker", mock.Anything, verify.MarkerInactive).Return(false)
	s.On("ReadField", mock.Anything, verify.FieldEntityType).Return("CARRIER", true)
	s.On("ReadField", mock.Anything, verify.FieldRegistrationStatus).Return("ACTIVE", true)
	s.On("ReadField", mock.Anything, verify.FieldAuthorityStatus).Return("AUTHORIZED FOR Property", true)
}

func TestProcess_VerifiedAndNotified(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 1635001).Return(true, nil)
	eligible(s)
	s.On("FetchDetailText", mock.Anything).Return(detailText, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, "a@b.com", "Loads for Acme", "Hi Acme").Return(nil)

	p := New(s, nil, &notify.Trigger{Template: tmpl, Notifier: n})
	res, err := p.Process(context.Background(), 1635001)
	require.NoError(t, err)

	assert.True(t, res.Outcome.IsVerified())
	assert.Nil(t, res.Failure)
	require.NotNil(t, res.Row)
	assert.Equal(t, 1635001, res.Row.Identifier)
	assert.Equal(t, model.CarrierRecord{
		LegalName:          "Acme LLC",
		RegistrationNumber: "12345",
		Address:            "1 Main St",
		Telephone:          "(555) 123-4567",
		Email:              "a@b.com",
	}, res.Row.Record)
	assert.Equal(t, model.FollowupEmailSent, res.Row.Followup)
	s.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestProcess_VerifiedWithoutTrigger(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 7).Return(true, nil)
	eligible(s)
	s.On("FetchDetailText", mock.Anything).Return(detailText, nil)

	res, err := New(s, verify.NewClassifier(), nil).Process(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, res.Row)
	assert.Equal(t, model.FollowupNotAttempted, res.Row.Followup)
}

func TestProcess_MismatchProducesNoRow(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 2).Return(true, nil)
	s.On("HasMarker", mock.Anything, verify.MarkerNotFound).Return(false)
	s.On("HasMarker", mock.Anything, verify.MarkerInactive).Return(false)
	s.On("ReadField", mock.Anything, verify.FieldEntityType).Return("BROKER", true)

	n := &mockNotifier{}
	res, err := New(s, nil, &notify.Trigger{Template: tmpl, Notifier: n}).Process(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, model.VerificationMismatch(model.ReasonEntityType), res.Outcome)
	assert.Nil(t, res.Row)
	assert.Nil(t, res.Failure)
	s.AssertNotCalled(t, "FetchDetailText", mock.Anything)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_NotFoundAndInactiveProduceNoRow(t *testing.T) {
	for _, marker := range []verify.Marker{verify.MarkerNotFound, verify.MarkerInactive} {
		t.Run(string(marker), func(t *testing.T) {
			s := &mockSession{}
			s.On("Submit", mock.Anything, 3).Return(true, nil)
			s.On("HasMarker", mock.Anything, verify.MarkerNotFound).Return(marker == verify.MarkerNotFound)
			s.On("HasMarker", mock.Anything, verify.MarkerInactive).Return(marker == verify.MarkerInactive).Maybe()

			res, err := New(s, nil, nil).Process(context.Background(), 3)
			require.NoError(t, err)
			assert.Nil(t, res.Row)
			assert.Nil(t, res.Failure)
			assert.False(t, res.Outcome.IsVerified())
		})
	}
}

func TestProcess_NotReadyIsFailure(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 4).Return(false, nil)

	res, err := New(s, nil, nil).Process(context.Background(), 4)
	require.NoError(t, err)

	require.NotNil(t, res.Failure)
	assert.Equal(t, model.FailureEntry{Identifier: 4, Reason: ReasonSearchNotFound}, *res.Failure)
	assert.Equal(t, model.OutcomeSessionFailure, res.Outcome.Kind)
	assert.Nil(t, res.Row)
	s.AssertNotCalled(t, "HasMarker", mock.Anything, mock.Anything)
}

func TestProcess_FieldReadFailure(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 5).Return(true, nil)
	s.On("HasMarker", mock.Anything, mock.Anything).Return(false)
	s.On("ReadField", mock.Anything, verify.FieldEntityType).Return("", false)

	res, err := New(s, nil, nil).Process(context.Background(), 5)
	require.NoError(t, err)

	require.NotNil(t, res.Failure)
	assert.Equal(t, "field-read: Entity Type", res.Failure.Reason)
	assert.Nil(t, res.Row)
}

func TestProcess_SubmitError(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 6).Return(false, errors.New("websocket: close 1006"))

	_, err := New(s, nil, nil).Process(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: submit 6")
}

func TestProcess_DetailUnreachableYieldsSentinelRow(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 8).Return(true, nil)
	eligible(s)
	s.On("FetchDetailText", mock.Anything).Return("", errors.New("popup never opened"))

	n := &mockNotifier{}
	res, err := New(s, nil, &notify.Trigger{Template: tmpl, Notifier: n}).Process(context.Background(), 8)
	require.NoError(t, err)

	require.NotNil(t, res.Row)
	assert.Equal(t, model.UnavailableRecord(), res.Row.Record)
	assert.Equal(t, model.FollowupNotAttempted, res.Row.Followup)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_SendFailureRecorded(t *testing.T) {
	s := &mockSession{}
	s.On("Submit", mock.Anything, 9).Return(true, nil)
	eligible(s)
	s.On("FetchDetailText", mock.Anything).Return(detailText, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	res, err := New(s, nil, &notify.Trigger{Template: tmpl, Notifier: n}).Process(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, res.Row)
	assert.Equal(t, model.FollowupSendFailed, res.Row.Followup)
	n.AssertNumberOfCalls(t, "Send", 1)
}
