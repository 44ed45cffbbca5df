package translation_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/translate/apiv3/translatepb"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/Joseph-Rai/translationapis/internal/credential"
	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/session"
	"github.com/Joseph-Rai/translationapis/internal/session/sessiontest"
	"github.com/Joseph-Rai/translationapis/internal/translation"
)

func newManager(t *testing.T) (*session.Manager, *sessiontest.Connector) {
	t.Helper()
	kf, err := credential.NewKeyFile(filepath.Join(t.TempDir(), "key.json"))
	require.NoError(t, err)
	connector := &sessiontest.Connector{}
	return session.NewManager(kf, connector), connector
}

func sampleRequest() *translatepb.TranslateTextRequest {
	return &translatepb.TranslateTextRequest{
		Parent:             "projects/acme/locations/global",
		Contents:           []string{"안녕하세요", "반갑습니다"},
		MimeType:           "text/plain",
		SourceLanguageCode: "ko",
		TargetLanguageCode: "en",
	}
}

func TestTranslate_BeforeAuthenticateNeverReachesVendor(t *testing.T) {
	m, connector := newManager(t)
	p := translation.NewPassthrough(m, time.Second)

	reqBytes, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), reqBytes)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	require.Empty(t, connector.Issued)

	// Once a session exists its client starts at zero calls.
	_, err = m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)
	require.Zero(t, connector.Last().Translation.(*sessiontest.Translation).Calls.Load())
}

func TestTranslate_RoundTrip(t *testing.T) {
	m, connector := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)

	want := &translatepb.TranslateTextResponse{
		Translations: []*translatepb.Translation{
			{TranslatedText: "Hello", DetectedLanguageCode: "ko"},
			{TranslatedText: "Nice to meet you", DetectedLanguageCode: "ko"},
		},
	}
	var received *translatepb.TranslateTextRequest
	connector.Last().Translation.(*sessiontest.Translation).Func = func(_ context.Context, req *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error) {
		received = req
		return want, nil
	}

	req := sampleRequest()
	reqBytes, err := proto.Marshal(req)
	require.NoError(t, err)

	out, err := translation.NewPassthrough(m, time.Second).Translate(context.Background(), reqBytes)
	require.NoError(t, err)

	require.True(t, proto.Equal(req, received), "request was modified in transit")

	wantBytes, err := proto.Marshal(want)
	require.NoError(t, err)
	require.Equal(t, wantBytes, out)
}

func TestTranslate_EchoVendor(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)

	reqBytes, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	out, err := translation.NewPassthrough(m, time.Second).Translate(context.Background(), reqBytes)
	require.NoError(t, err)

	var resp translatepb.TranslateTextResponse
	require.NoError(t, proto.Unmarshal(out, &resp))
	require.Len(t, resp.GetTranslations(), 2)
	require.Equal(t, "안녕하세요", resp.GetTranslations()[0].GetTranslatedText())
	require.Equal(t, "반갑습니다", resp.GetTranslations()[1].GetTranslatedText())
}

func TestTranslate_InvalidPayload(t *testing.T) {
	m, connector := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)

	_, err = translation.NewPassthrough(m, time.Second).Translate(context.Background(), []byte{0xff, 0xff, 0xff})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	require.Zero(t, connector.Last().Translation.(*sessiontest.Translation).Calls.Load())
}

func TestTranslate_VendorErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "vendor failure", err: status.Error(codes.InvalidArgument, "Target language is invalid."), want: domain.ErrVendorFailure},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "deadline"), want: domain.ErrDeadlineExceeded},
		{name: "plain error", err: sessiontest.ErrVendor, want: domain.ErrVendorFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, connector := newManager(t)
			_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
			require.NoError(t, err)
			connector.Last().Translation.(*sessiontest.Translation).Func = func(context.Context, *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error) {
				return nil, tt.err
			}

			reqBytes, err := proto.Marshal(sampleRequest())
			require.NoError(t, err)

			_, err = translation.NewPassthrough(m, time.Second).Translate(context.Background(), reqBytes)
			require.ErrorIs(t, err, tt.want)
			require.Contains(t, err.Error(), tt.err.Error())
		})
	}
}

func TestTranslate_Timeout(t *testing.T) {
	m, connector := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)
	connector.Last().Translation.(*sessiontest.Translation).Func = func(ctx context.Context, _ *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	reqBytes, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	_, err = translation.NewPassthrough(m, 20*time.Millisecond).Translate(context.Background(), reqBytes)
	require.ErrorIs(t, err, domain.ErrDeadlineExceeded)
}

func TestTranslate_InFlightSurvivesReauthentication(t *testing.T) {
	m, connector := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("first"))
	require.NoError(t, err)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	first := connector.Last().Translation.(*sessiontest.Translation)
	first.Func = func(_ context.Context, req *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error) {
		close(entered)
		<-proceed
		if first.Closed() {
			return nil, status.Error(codes.Canceled, "grpc: the client connection is closing")
		}
		return &translatepb.TranslateTextResponse{
			Translations: []*translatepb.Translation{{TranslatedText: "from first"}},
		}, nil
	}

	reqBytes, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	done := make(chan error, 1)
	var out []byte
	go func() {
		var err error
		out, err = translation.NewPassthrough(m, time.Second).Translate(context.Background(), reqBytes)
		done <- err
	}()

	<-entered
	_, err = m.Authenticate(context.Background(), sessiontest.Key("second"))
	require.NoError(t, err)
	close(proceed)

	require.NoError(t, <-done)
	var resp translatepb.TranslateTextResponse
	require.NoError(t, proto.Unmarshal(out, &resp))
	require.Equal(t, "from first", resp.GetTranslations()[0].GetTranslatedText())
	require.True(t, first.Closed(), "retired client closed after the in-flight call released it")
}

func TestTranslate_DisablesClientRetries(t *testing.T) {
	m, connector := newManager(t)
	_, err := m.Authenticate(context.Background(), sessiontest.Key("acme"))
	require.NoError(t, err)

	fake := connector.Last().Translation.(*sessiontest.Translation)
	fake.Func = func(context.Context, *translatepb.TranslateTextRequest) (*translatepb.TranslateTextResponse, error) {
		return nil, status.Error(codes.Unavailable, "backend unavailable")
	}

	reqBytes, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	_, err = translation.NewPassthrough(m, time.Second).Translate(context.Background(), reqBytes)
	require.ErrorIs(t, err, domain.ErrVendorFailure)

	require.EqualValues(t, 1, fake.Calls.Load())
	calls := fake.CallOptions()
	require.Len(t, calls, 1)
	require.True(t, sessiontest.RetryDisabled(calls[0]), "translate must disable client retries")
}
