package types

const (
	DefaultPageSize = 4096 // 4KB page
	MinPageSize     = 512
	MaxPageSize     = 1 << 20
	PageHeaderSize  = 32 // type(1) reserved(7) pageID(8) generation(8) checksum(8)
)

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeHeader
	PageTypeNode
	PageTypeSymbols
	PageTypeFreeList
)

func (t PageType) String() string {
	switch t {
	case PageTypeHeader:
		return "header"
	case PageTypeNode:
		return "node"
	case PageTypeSymbols:
		return "symbols"
	case PageTypeFreeList:
		return "freelist"
	default:
		return "unknown"
	}
}
