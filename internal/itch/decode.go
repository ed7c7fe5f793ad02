package itch

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrTruncated means the buffer ends before the record's declared
	// length; the caller may retry once more bytes have arrived.
	ErrTruncated = errors.New("itch: truncated record")
	// ErrUnknownMessageType means the leading type byte is not in the
	// record size table.
	ErrUnknownMessageType = errors.New("itch: unknown message type")
)

// headerSize is the common prefix: type(1) + stock_locate(2) +
// tracking_number(2) + timestamp(6).
const headerSize = 11

// recordSizes maps a type byte to the total record length on the wire.
var recordSizes = [256]int{
	TypeSystemEvent:               headerSize + 1,
	TypeStockDirectory:            headerSize + 28,
	TypeStockTradingAction:        headerSize + 14,
	TypeShortSalePriceTest:        headerSize + 9,
	TypeMarketParticipantPosition: headerSize + 15,
	TypeMWCBDeclineLevel:          headerSize + 12,
	TypeMWCBStatus:                headerSize + 1,
	TypeQuotingPeriodUpdate:       headerSize + 9,
	TypeLULDAuctionCollar:         headerSize + 24,
	TypeOperationalHalt:           headerSize + 10,
	TypeAddOrder:                  headerSize + 25,
	TypeAddOrderMPID:              headerSize + 29,
	TypeOrderExecuted:             headerSize + 20,
	TypeOrderExecutedWithPrice:    headerSize + 25,
	TypeOrderCancel:               headerSize + 12,
	TypeOrderDelete:               headerSize + 8,
	TypeOrderReplace:              headerSize + 24,
	TypeTrade:                     headerSize + 33,
	TypeCrossTrade:                headerSize + 29,
	TypeBrokenTrade:               headerSize + 8,
	TypeNOII:                      headerSize + 46,
	TypeDirectListing:             headerSize + 41,
}

// RecordSize returns the total wire length for a type byte, or false if the
// type is unknown.
func RecordSize(t byte) (int, bool) {
	n := recordSizes[t]
	return n, n != 0
}

// reader walks a record sequentially. Bounds are checked once up front
// against the record size table, so the field accessors do not re-check.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() byte {
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *reader) u16() uint16 {
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// u48 reads the six-byte timestamp, zero-extended to 64 bits.
func (r *reader) u48() uint64 {
	b := r.buf[r.off:]
	v := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	r.off += 6
	return v
}

func (r *reader) u64() uint64 {
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) bytes4() (out [4]byte) {
	copy(out[:], r.buf[r.off:])
	r.off += 4
	return
}

func (r *reader) bytes2() (out [2]byte) {
	copy(out[:], r.buf[r.off:])
	r.off += 2
	return
}

func (r *reader) stock() (out [8]byte) {
	copy(out[:], r.buf[r.off:])
	r.off += 8
	return
}

func (r *reader) header() Header {
	return Header{
		StockLocate:    r.u16(),
		TrackingNumber: r.u16(),
		Timestamp:      r.u48(),
	}
}

// Decode parses the record at the start of buf and returns the message along
// with the number of bytes consumed. On ErrTruncated nothing is consumed and
// the caller may retry with a longer buffer; on ErrUnknownMessageType parsing
// cannot proceed past the bad offset.
func Decode(buf []byte) (Message, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrTruncated
	}
	t := buf[0]
	size, ok := RecordSize(t)
	if !ok {
		return nil, 0, ErrUnknownMessageType
	}
	if len(buf) < size {
		return nil, 0, ErrTruncated
	}

	r := &reader{buf: buf, off: 1}
	h := r.header()

	var msg Message
	switch t {
	case TypeSystemEvent:
		msg = SystemEvent{Header: h, EventCode: r.u8()}
	case TypeStockDirectory:
		msg = StockDirectory{
			Header:                 h,
			Stock:                  r.stock(),
			MarketCategory:         r.u8(),
			FinancialStatus:        r.u8(),
			RoundLotSize:           r.u32(),
			RoundLotsOnly:          r.u8(),
			IssueClassification:    r.u8(),
			IssueSubType:           r.bytes2(),
			Authenticity:           r.u8(),
			ShortSaleThreshold:     r.u8(),
			IPOFlag:                r.u8(),
			LULDReferencePriceTier: r.u8(),
			ETPFlag:                r.u8(),
			ETPLeverageFactor:      r.u32(),
			InverseIndicator:       r.u8(),
		}
	case TypeStockTradingAction:
		msg = StockTradingAction{
			Header:       h,
			Stock:        r.stock(),
			TradingState: r.u8(),
			Reserved:     r.u8(),
			Reason:       r.bytes4(),
		}
	case TypeShortSalePriceTest:
		msg = ShortSalePriceTest{Header: h, Stock: r.stock(), RegSHOAction: r.u8()}
	case TypeMarketParticipantPosition:
		msg = MarketParticipantPosition{
			Header:                 h,
			MPID:                   r.bytes4(),
			Stock:                  r.stock(),
			PrimaryMarketMaker:     r.u8(),
			MarketMakerMode:        r.u8(),
			MarketParticipantState: r.u8(),
		}
	case TypeMWCBDeclineLevel:
		msg = MWCBDeclineLevel{Header: h, LevelOne: r.f32(), LevelTwo: r.f32(), LevelThree: r.f32()}
	case TypeMWCBStatus:
		msg = MWCBStatus{Header: h, BreachedLevel: r.u8()}
	case TypeQuotingPeriodUpdate:
		msg = QuotingPeriodUpdate{
			Header:                       h,
			IPOQuotationReleaseTime:      r.u32(),
			IPOQuotationReleaseQualifier: r.u8(),
			IPOPrice:                     r.f32(),
		}
	case TypeLULDAuctionCollar:
		msg = LULDAuctionCollar{
			Header:         h,
			Stock:          r.stock(),
			ReferencePrice: r.f32(),
			UpperCollar:    r.f32(),
			LowerCollar:    r.f32(),
			Extension:      r.u32(),
		}
	case TypeOperationalHalt:
		msg = OperationalHalt{Header: h, Stock: r.stock(), MarketCode: r.u8(), OperationalHaltAction: r.u8()}
	case TypeAddOrder:
		msg = decodeAddOrder(r, h)
	case TypeAddOrderMPID:
		msg = AddOrderMPID{AddOrder: decodeAddOrder(r, h), Attribution: r.bytes4()}
	case TypeOrderExecuted:
		msg = decodeOrderExecuted(r, h)
	case TypeOrderExecutedWithPrice:
		msg = OrderExecutedWithPrice{
			OrderExecuted:  decodeOrderExecuted(r, h),
			Printable:      r.u8(),
			ExecutionPrice: r.f32(),
		}
	case TypeOrderCancel:
		msg = OrderCancel{Header: h, OrderRef: r.u64(), Cancelled: r.u32()}
	case TypeOrderDelete:
		msg = OrderDelete{Header: h, OrderRef: r.u64()}
	case TypeOrderReplace:
		msg = OrderReplace{Header: h, OrigRef: r.u64(), NewRef: r.u64(), Shares: r.u32(), Price: r.f32()}
	case TypeTrade:
		msg = Trade{
			Header:      h,
			OrderRef:    r.u64(),
			Side:        r.u8(),
			Shares:      r.u32(),
			Stock:       r.stock(),
			Price:       r.f32(),
			MatchNumber: r.u64(),
		}
	case TypeCrossTrade:
		msg = CrossTrade{
			Header:      h,
			Shares:      r.u64(),
			Stock:       r.stock(),
			CrossPrice:  r.f32(),
			MatchNumber: r.u64(),
			CrossType:   r.u8(),
		}
	case TypeBrokenTrade:
		msg = BrokenTrade{Header: h, MatchNumber: r.u64()}
	case TypeNOII:
		// Trailing reserved bytes after the last field are skipped; the
		// record still consumes its full declared length.
		msg = NOII{
			Header:                  h,
			PairedShares:            r.u64(),
			ImbalanceShares:         r.u64(),
			ImbalanceDirection:      r.u8(),
			Stock:                   r.stock(),
			FarPrice:                r.f32(),
			NearPrice:               r.f32(),
			CurrentReferencePrice:   r.f32(),
			CrossType:               r.u8(),
			PriceVariationIndicator: r.u8(),
		}
	case TypeDirectListing:
		msg = DirectListing{
			Header:                h,
			Stock:                 r.stock(),
			OpenEligibilityStatus: r.u8(),
			MinimumAllowablePrice: r.f32(),
			MaximumAllowablePrice: r.f32(),
			NearExecutionPrice:    r.f32(),
			NearExecutionTime:     r.u64(),
			LowerPriceRangeCollar: r.f32(),
			UpperPriceRangeCollar: r.f32(),
		}
	}
	return msg, size, nil
}

func decodeAddOrder(r *reader, h Header) AddOrder {
	return AddOrder{
		Header:   h,
		OrderRef: r.u64(),
		Side:     r.u8(),
		Shares:   r.u32(),
		Stock:    r.stock(),
		Price:    r.f32(),
	}
}

func decodeOrderExecuted(r *reader, h Header) OrderExecuted {
	return OrderExecuted{
		Header:      h,
		OrderRef:    r.u64(),
		Executed:    r.u32(),
		MatchNumber: r.u64(),
	}
}
