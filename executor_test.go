package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/stretchr/testify/require"
)

func TestNewExecutor(t *testing.T) {
	pool := mustPool(alwaysValid("a"))

	_, err := dispatcher.NewExecutor(nil, nil, 3, 0, nil)
	require.ErrorIs(t, err, dispatcher.ErrNoEndpoints)

	_, err = dispatcher.NewExecutor(pool, nil, 0, 0, nil)
	require.ErrorIs(t, err, dispatcher.ErrInvalidAttempts)

	exec, err := dispatcher.NewExecutor(pool, nil, 1, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, exec)
}

func TestExecutorRun(t *testing.T) {
	cases := []struct {
		desc        string
		endpoints   func() []*fakeEndpoint
		maxAttempts int
		succeeded   bool
		attempts    int
		endpoint    string
		err         error
	}{
		{
			desc:        "valid on first try",
			endpoints:   func() []*fakeEndpoint { return []*fakeEndpoint{alwaysValid("a")} },
			maxAttempts: 3,
			succeeded:   true,
			attempts:    1,
			endpoint:    "a",
		},
		{
			desc:        "unparsable output uses every attempt",
			endpoints:   func() []*fakeEndpoint { return []*fakeEndpoint{alwaysGarbage("a")} },
			maxAttempts: 4,
			attempts:    4,
			endpoint:    "a",
			err:         dispatcher.ErrInvalidResponse,
		},
		{
			desc:        "transport failure uses every attempt",
			endpoints:   func() []*fakeEndpoint { return []*fakeEndpoint{alwaysDown("a")} },
			maxAttempts: 2,
			attempts:    2,
			endpoint:    "a",
			err:         dispatcher.ErrTransport,
		},
		{
			desc: "retry lands on the next endpoint",
			endpoints: func() []*fakeEndpoint {
				return []*fakeEndpoint{alwaysDown("a"), alwaysValid("b")}
			},
			maxAttempts: 3,
			succeeded:   true,
			attempts:    2,
			endpoint:    "b",
		},
		{
			desc: "same endpoint recovers",
			endpoints: func() []*fakeEndpoint {
				flaky := &fakeEndpoint{name: "flaky", respond: func(call int64, _ []byte) (string, error) {
					if call < 3 {
						return "", errConnRefused
					}
					return validPayload, nil
				}}
				return []*fakeEndpoint{flaky}
			},
			maxAttempts: 3,
			succeeded:   true,
			attempts:    3,
			endpoint:    "flaky",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			fakes := tc.endpoints()
			eps := make([]dispatcher.Endpoint, len(fakes))
			for i, f := range fakes {
				eps[i] = f
			}
			obs := &recordingObserver{}

			exec, err := dispatcher.NewExecutor(mustPool(eps...), nil, tc.maxAttempts, time.Millisecond, obs)
			require.NoError(t, err)

			out := exec.Run(context.Background(), dispatcher.Task{ID: "T1", Request: []byte("req")})

			require.Equal(t, "T1", out.TaskID)
			require.Equal(t, tc.succeeded, out.Succeeded())
			require.Equal(t, tc.attempts, out.Attempts)
			require.Equal(t, tc.endpoint, out.Endpoint)
			require.Equal(t, tc.attempts, obs.attemptsFor("T1"))
			require.False(t, out.Finished.Before(out.Started))

			var calls int64
			for _, f := range fakes {
				calls += f.calls.Load()
			}
			require.EqualValues(t, tc.attempts, calls)

			if tc.succeeded {
				require.Equal(t, dispatcher.StateSucceeded, out.Status)
				require.NotEmpty(t, out.Payload)
				require.NoError(t, out.Err)
				return
			}
			require.Equal(t, dispatcher.StateFailed, out.Status)
			require.Nil(t, out.Payload)
			require.ErrorIs(t, out.Err, dispatcher.ErrAttemptsExhausted)
			require.ErrorIs(t, out.Err, tc.err)
			require.NotEmpty(t, out.Reason())
		})
	}
}

func TestExecutorRunCancelled(t *testing.T) {
	ep := alwaysValid("a")
	exec, err := dispatcher.NewExecutor(mustPool(ep), nil, 3, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := exec.Run(ctx, dispatcher.Task{ID: "T1"})

	require.False(t, out.Succeeded())
	require.ErrorIs(t, out.Err, context.Canceled)
	require.Equal(t, 0, out.Attempts)
	require.EqualValues(t, 0, ep.calls.Load())
}

func TestExecutorRunCancelledDuringBackoff(t *testing.T) {
	ep := alwaysDown("a")
	exec, err := dispatcher.NewExecutor(mustPool(ep), nil, 5, time.Hour, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := exec.Run(ctx, dispatcher.Task{ID: "T1"})

	require.False(t, out.Succeeded())
	require.ErrorIs(t, out.Err, context.DeadlineExceeded)
	require.ErrorIs(t, out.Err, dispatcher.ErrTransport)
	require.Equal(t, 1, out.Attempts)
	require.EqualValues(t, 1, ep.calls.Load())
}
