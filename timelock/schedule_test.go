package timelock

import (
	"testing"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/gatetest/assert"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	offsets := Offsets{
		SrcWithdrawal:         10,
		SrcPublicWithdrawal:   120,
		SrcCancellation:       3600,
		SrcPublicCancellation: 3660,
		DstWithdrawal:         1800,
		DstPublicWithdrawal:   1860,
		DstCancellation:       3600,
	}
	s := Pack(offsets)
	assert.Equal(t, offsets, s.Unpack())
	assert.Equal(t, hashgate.UnixTime(0), s.DeployedAt())
}

func TestUnlockInstants(t *testing.T) {
	const deployed = hashgate.UnixTime(1700000000)

	s := Pack(Offsets{
		SrcWithdrawal:         0,
		SrcPublicWithdrawal:   0,
		SrcCancellation:       3600,
		SrcPublicCancellation: 3660,
		DstWithdrawal:         1800,
		DstPublicWithdrawal:   1860,
		DstCancellation:       3600,
	}).WithDeployedAt(deployed)

	cases := map[string]struct {
		stage Stage
		want  hashgate.UnixTime
	}{
		"src withdrawal opens at deployment": {
			stage: StageSrcWithdrawal,
			want:  1700000000,
		},
		"src public withdrawal opens at deployment": {
			stage: StageSrcPublicWithdrawal,
			want:  1700000000,
		},
		"src cancellation": {
			stage: StageSrcCancellation,
			want:  1700003600,
		},
		"src public cancellation": {
			stage: StageSrcPublicCancellation,
			want:  1700003660,
		},
		"dst withdrawal": {
			stage: StageDstWithdrawal,
			want:  1700001800,
		},
		"dst public withdrawal": {
			stage: StageDstPublicWithdrawal,
			want:  1700001860,
		},
		"dst cancellation": {
			stage: StageDstCancellation,
			want:  1700003600,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.want, s.UnlockInstant(tc.stage))
		})
	}
}

func TestWithDeployedAtPreservesOffsets(t *testing.T) {
	offsets := Offsets{
		SrcCancellation:       100,
		SrcPublicCancellation: 160,
		DstWithdrawal:         50,
		DstPublicWithdrawal:   110,
		DstCancellation:       100,
	}
	s := Pack(offsets).WithDeployedAt(1700000000)
	assert.Equal(t, offsets, s.Unpack())
	assert.Equal(t, hashgate.UnixTime(1700000000), s.DeployedAt())

	// restamping replaces the old timestamp completely
	s = s.WithDeployedAt(1800000000)
	assert.Equal(t, offsets, s.Unpack())
	assert.Equal(t, hashgate.UnixTime(1800000000), s.DeployedAt())
}

func TestRescueInstant(t *testing.T) {
	s := Schedule{}.WithDeployedAt(1700000000)
	assert.Equal(t, hashgate.UnixTime(1700604800), s.RescueInstant(604800))
}

func TestWordRoundTrip(t *testing.T) {
	s := Pack(Offsets{
		SrcWithdrawal:   1,
		DstWithdrawal:   2,
		DstCancellation: 3,
	}).WithDeployedAt(42)
	restored := FromWord(s.Word())
	if !s.Equals(restored) {
		t.Fatalf("want %s, got %s", s, restored)
	}
}

func TestWellformed(t *testing.T) {
	cases := map[string]struct {
		offsets Offsets
		wantErr *errors.Error
	}{
		"conventional ordering": {
			offsets: Offsets{
				SrcWithdrawal:         0,
				SrcPublicWithdrawal:   60,
				SrcCancellation:       3600,
				SrcPublicCancellation: 3660,
				DstWithdrawal:         1800,
				DstPublicWithdrawal:   1860,
				DstCancellation:       3600,
			},
		},
		"all zero is allowed": {
			offsets: Offsets{},
		},
		"src withdrawal after public withdrawal": {
			offsets: Offsets{
				SrcWithdrawal:       100,
				SrcPublicWithdrawal: 50,
			},
			wantErr: errors.ErrState,
		},
		"src public withdrawal after cancellation": {
			offsets: Offsets{
				SrcPublicWithdrawal: 100,
				SrcCancellation:     50,
			},
			wantErr: errors.ErrState,
		},
		"src cancellation after public cancellation": {
			offsets: Offsets{
				SrcCancellation:       100,
				SrcPublicCancellation: 50,
			},
			wantErr: errors.ErrState,
		},
		"dst withdrawal after public withdrawal": {
			offsets: Offsets{
				DstWithdrawal:       100,
				DstPublicWithdrawal: 50,
			},
			wantErr: errors.ErrState,
		},
		"dst public withdrawal after cancellation": {
			offsets: Offsets{
				DstPublicWithdrawal: 100,
				DstCancellation:     50,
			},
			wantErr: errors.ErrState,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := Pack(tc.offsets).Wellformed()
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestDeployedAtTruncates(t *testing.T) {
	// timestamps wider than 32 bits lose their top bits, exactly as in
	// the packed word
	s := Schedule{}.WithDeployedAt(hashgate.UnixTime(1 << 40))
	assert.Equal(t, hashgate.UnixTime(0), s.DeployedAt())
}

func TestOffsetUnknownStagePanics(t *testing.T) {
	assert.Panics(t, func() {
		Schedule{}.Offset(Stage(200))
	})
}
