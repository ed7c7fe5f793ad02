package itch

import (
	"encoding/binary"
	"math"
)

// writer builds one record into a pre-sized scratch slice.
type writer struct {
	buf []byte
	off int
}

func (w *writer) u8(v byte) {
	w.buf[w.off] = v
	w.off++
}

func (w *writer) u16(v uint16) {
	binary.BigEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *writer) u32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

// u48 writes the low 48 bits of the timestamp.
func (w *writer) u48(v uint64) {
	b := w.buf[w.off:]
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
	w.off += 6
}

func (w *writer) u64(v uint64) {
	binary.BigEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) raw(b []byte) {
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

func (w *writer) header(t byte, h Header) {
	w.u8(t)
	w.u16(h.StockLocate)
	w.u16(h.TrackingNumber)
	w.u48(h.Timestamp)
}

// Append encodes m in wire form onto dst and returns the extended slice.
// Encoding is the exact inverse of Decode: appending the decode of a valid
// record reproduces that record byte for byte. Reserved trailing bytes of
// 'I' and 'N' records are written as zero.
func Append(dst []byte, m Message) []byte {
	size, _ := RecordSize(m.Type())
	start := len(dst)
	dst = append(dst, make([]byte, size)...)
	w := &writer{buf: dst[start:]}

	switch v := m.(type) {
	case SystemEvent:
		w.header(TypeSystemEvent, v.Header)
		w.u8(v.EventCode)
	case StockDirectory:
		w.header(TypeStockDirectory, v.Header)
		w.raw(v.Stock[:])
		w.u8(v.MarketCategory)
		w.u8(v.FinancialStatus)
		w.u32(v.RoundLotSize)
		w.u8(v.RoundLotsOnly)
		w.u8(v.IssueClassification)
		w.raw(v.IssueSubType[:])
		w.u8(v.Authenticity)
		w.u8(v.ShortSaleThreshold)
		w.u8(v.IPOFlag)
		w.u8(v.LULDReferencePriceTier)
		w.u8(v.ETPFlag)
		w.u32(v.ETPLeverageFactor)
		w.u8(v.InverseIndicator)
	case StockTradingAction:
		w.header(TypeStockTradingAction, v.Header)
		w.raw(v.Stock[:])
		w.u8(v.TradingState)
		w.u8(v.Reserved)
		w.raw(v.Reason[:])
	case ShortSalePriceTest:
		w.header(TypeShortSalePriceTest, v.Header)
		w.raw(v.Stock[:])
		w.u8(v.RegSHOAction)
	case MarketParticipantPosition:
		w.header(TypeMarketParticipantPosition, v.Header)
		w.raw(v.MPID[:])
		w.raw(v.Stock[:])
		w.u8(v.PrimaryMarketMaker)
		w.u8(v.MarketMakerMode)
		w.u8(v.MarketParticipantState)
	case MWCBDeclineLevel:
		w.header(TypeMWCBDeclineLevel, v.Header)
		w.f32(v.LevelOne)
		w.f32(v.LevelTwo)
		w.f32(v.LevelThree)
	case MWCBStatus:
		w.header(TypeMWCBStatus, v.Header)
		w.u8(v.BreachedLevel)
	case QuotingPeriodUpdate:
		w.header(TypeQuotingPeriodUpdate, v.Header)
		w.u32(v.IPOQuotationReleaseTime)
		w.u8(v.IPOQuotationReleaseQualifier)
		w.f32(v.IPOPrice)
	case LULDAuctionCollar:
		w.header(TypeLULDAuctionCollar, v.Header)
		w.raw(v.Stock[:])
		w.f32(v.ReferencePrice)
		w.f32(v.UpperCollar)
		w.f32(v.LowerCollar)
		w.u32(v.Extension)
	case OperationalHalt:
		w.header(TypeOperationalHalt, v.Header)
		w.raw(v.Stock[:])
		w.u8(v.MarketCode)
		w.u8(v.OperationalHaltAction)
	case AddOrder:
		w.header(TypeAddOrder, v.Header)
		appendAddOrder(w, v)
	case AddOrderMPID:
		w.header(TypeAddOrderMPID, v.Header)
		appendAddOrder(w, v.AddOrder)
		w.raw(v.Attribution[:])
	case OrderExecuted:
		w.header(TypeOrderExecuted, v.Header)
		appendOrderExecuted(w, v)
	case OrderExecutedWithPrice:
		w.header(TypeOrderExecutedWithPrice, v.Header)
		appendOrderExecuted(w, v.OrderExecuted)
		w.u8(v.Printable)
		w.f32(v.ExecutionPrice)
	case OrderCancel:
		w.header(TypeOrderCancel, v.Header)
		w.u64(v.OrderRef)
		w.u32(v.Cancelled)
	case OrderDelete:
		w.header(TypeOrderDelete, v.Header)
		w.u64(v.OrderRef)
	case OrderReplace:
		w.header(TypeOrderReplace, v.Header)
		w.u64(v.OrigRef)
		w.u64(v.NewRef)
		w.u32(v.Shares)
		w.f32(v.Price)
	case Trade:
		w.header(TypeTrade, v.Header)
		w.u64(v.OrderRef)
		w.u8(v.Side)
		w.u32(v.Shares)
		w.raw(v.Stock[:])
		w.f32(v.Price)
		w.u64(v.MatchNumber)
	case CrossTrade:
		w.header(TypeCrossTrade, v.Header)
		w.u64(v.Shares)
		w.raw(v.Stock[:])
		w.f32(v.CrossPrice)
		w.u64(v.MatchNumber)
		w.u8(v.CrossType)
	case BrokenTrade:
		w.header(TypeBrokenTrade, v.Header)
		w.u64(v.MatchNumber)
	case NOII:
		w.header(TypeNOII, v.Header)
		w.u64(v.PairedShares)
		w.u64(v.ImbalanceShares)
		w.u8(v.ImbalanceDirection)
		w.raw(v.Stock[:])
		w.f32(v.FarPrice)
		w.f32(v.NearPrice)
		w.f32(v.CurrentReferencePrice)
		w.u8(v.CrossType)
		w.u8(v.PriceVariationIndicator)
	case DirectListing:
		w.header(TypeDirectListing, v.Header)
		w.raw(v.Stock[:])
		w.u8(v.OpenEligibilityStatus)
		w.f32(v.MinimumAllowablePrice)
		w.f32(v.MaximumAllowablePrice)
		w.f32(v.NearExecutionPrice)
		w.u64(v.NearExecutionTime)
		w.f32(v.LowerPriceRangeCollar)
		w.f32(v.UpperPriceRangeCollar)
	}
	return dst
}

// Encode is Append into a fresh slice.
func Encode(m Message) []byte {
	return Append(nil, m)
}

func appendAddOrder(w *writer, v AddOrder) {
	w.u64(v.OrderRef)
	w.u8(v.Side)
	w.u32(v.Shares)
	w.raw(v.Stock[:])
	w.f32(v.Price)
}

func appendOrderExecuted(w *writer, v OrderExecuted) {
	w.u64(v.OrderRef)
	w.u32(v.Executed)
	w.u64(v.MatchNumber)
}
