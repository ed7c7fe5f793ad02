package itch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSizes(t *testing.T) {
	// Totals include the 11-byte common header.
	want := map[byte]int{
		'S': 12, 'R': 39, 'H': 25, 'Y': 20, 'L': 26, 'V': 23, 'W': 12,
		'K': 20, 'J': 35, 'h': 21, 'A': 36, 'F': 40, 'E': 31, 'C': 36,
		'X': 23, 'D': 19, 'U': 35, 'P': 44, 'Q': 40, 'B': 19, 'I': 57,
		'N': 52,
	}
	for typ, total := range want {
		got, ok := RecordSize(typ)
		require.True(t, ok, "type %c", typ)
		assert.Equal(t, total, got, "type %c", typ)
	}
	_, ok := RecordSize('Z')
	assert.False(t, ok)
}

func TestDecodeAddOrder(t *testing.T) {
	msg := AddOrder{
		Header:   Header{StockLocate: 7, TrackingNumber: 3, Timestamp: 0x0000123456789abc},
		OrderRef: 42,
		Side:     'B',
		Shares:   100,
		Stock:    PadSymbol("TSLA"),
		Price:    10.0,
	}
	buf := Encode(msg)
	require.Len(t, buf, 36)

	got, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 36, n)
	assert.Equal(t, msg, got)
}

func TestDecodeBigEndianFields(t *testing.T) {
	buf := Encode(OrderCancel{
		Header:    Header{StockLocate: 0x0102, TrackingNumber: 0x0304},
		OrderRef:  0x1122334455667788,
		Cancelled: 0x0a0b0c0d,
	})
	// Spot-check the wire layout byte by byte.
	assert.Equal(t, byte('X'), buf[0])
	assert.Equal(t, []byte{0x01, 0x02}, buf[1:3])
	assert.Equal(t, []byte{0x03, 0x04}, buf[3:5])
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, buf[11:19])
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c, 0x0d}, buf[19:23])
}

func TestDecodeTimestampZeroExtended(t *testing.T) {
	// All 48 timestamp bits set; decode must not sign-extend.
	buf := Encode(OrderDelete{Header: Header{Timestamp: 0xffffffffffff}, OrderRef: 1})
	got, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffffffff), got.(OrderDelete).Timestamp)
}

func TestDecodeTruncated(t *testing.T) {
	buf := Encode(OrderDelete{OrderRef: 9})
	for i := 0; i < len(buf); i++ {
		_, n, err := Decode(buf[:i])
		assert.ErrorIs(t, err, ErrTruncated, "prefix length %d", i)
		assert.Zero(t, n)
	}
	// Retrying with the full record succeeds.
	_, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
}

func TestDecodeUnknownType(t *testing.T) {
	buf := make([]byte, 64)
	buf[0] = 'z'
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestRoundTripAllTypes(t *testing.T) {
	h := Header{StockLocate: 1, TrackingNumber: 2, Timestamp: 123456789}
	stock := PadSymbol("TSLA")
	msgs := []Message{
		SystemEvent{Header: h, EventCode: 'O'},
		StockDirectory{Header: h, Stock: stock, MarketCategory: 'Q', RoundLotSize: 100,
			IssueSubType: [2]byte{'Z', ' '}, Authenticity: 'P'},
		StockTradingAction{Header: h, Stock: stock, TradingState: 'T', Reason: [4]byte{' ', ' ', ' ', ' '}},
		ShortSalePriceTest{Header: h, Stock: stock, RegSHOAction: '0'},
		MarketParticipantPosition{Header: h, MPID: [4]byte{'M', 'P', 'I', 'D'}, Stock: stock,
			PrimaryMarketMaker: 'Y', MarketMakerMode: 'N', MarketParticipantState: 'A'},
		MWCBDeclineLevel{Header: h, LevelOne: 3400.25, LevelTwo: 3200.5, LevelThree: 2900},
		MWCBStatus{Header: h, BreachedLevel: '1'},
		QuotingPeriodUpdate{Header: h, IPOQuotationReleaseTime: 34200, IPOQuotationReleaseQualifier: 'A', IPOPrice: 17.5},
		LULDAuctionCollar{Header: h, Stock: stock, ReferencePrice: 10, UpperCollar: 10.5, LowerCollar: 9.5, Extension: 1},
		OperationalHalt{Header: h, Stock: stock, MarketCode: 'Q', OperationalHaltAction: 'H'},
		AddOrder{Header: h, OrderRef: 1, Side: 'B', Shares: 100, Stock: stock, Price: 10},
		AddOrderMPID{AddOrder: AddOrder{Header: h, OrderRef: 2, Side: 'S', Shares: 50, Stock: stock, Price: 10.5},
			Attribution: [4]byte{'L', 'E', 'H', 'M'}},
		OrderExecuted{Header: h, OrderRef: 1, Executed: 40, MatchNumber: 900},
		OrderExecutedWithPrice{OrderExecuted: OrderExecuted{Header: h, OrderRef: 1, Executed: 10, MatchNumber: 901},
			Printable: 'Y', ExecutionPrice: 10.01},
		OrderCancel{Header: h, OrderRef: 1, Cancelled: 25},
		OrderDelete{Header: h, OrderRef: 2},
		OrderReplace{Header: h, OrigRef: 1, NewRef: 3, Shares: 60, Price: 10.25},
		Trade{Header: h, OrderRef: 0, Side: 'B', Shares: 10, Stock: stock, Price: 10, MatchNumber: 902},
		CrossTrade{Header: h, Shares: 5000, Stock: stock, CrossPrice: 10.1, MatchNumber: 903, CrossType: 'O'},
		BrokenTrade{Header: h, MatchNumber: 902},
		NOII{Header: h, PairedShares: 1000, ImbalanceShares: 200, ImbalanceDirection: 'B', Stock: stock,
			FarPrice: 10.2, NearPrice: 10.1, CurrentReferencePrice: 10, CrossType: 'O', PriceVariationIndicator: 'A'},
		DirectListing{Header: h, Stock: stock, OpenEligibilityStatus: 'Y', MinimumAllowablePrice: 9,
			MaximumAllowablePrice: 11, NearExecutionPrice: 10, NearExecutionTime: 34200000000000,
			LowerPriceRangeCollar: 9.5, UpperPriceRangeCollar: 10.5},
	}

	// Concatenate, then walk the buffer: every record decodes back to the
	// original value and re-encodes to the identical bytes.
	var stream []byte
	for _, m := range msgs {
		stream = Append(stream, m)
	}
	var out []byte
	off := 0
	for i := 0; off < len(stream); i++ {
		m, n, err := Decode(stream[off:])
		require.NoError(t, err)
		require.Equal(t, msgs[i], m)
		out = Append(out, m)
		off += n
	}
	assert.True(t, bytes.Equal(stream, out), "re-encoded stream differs")
}

func TestSymbolHelpers(t *testing.T) {
	s := PadSymbol("TSLA")
	assert.Equal(t, [8]byte{'T', 'S', 'L', 'A', ' ', ' ', ' ', ' '}, s)
	assert.Equal(t, "TSLA", SymbolString(s))

	long := PadSymbol("VERYLONGNAME")
	assert.Equal(t, "VERYLONG", SymbolString(long))
}
