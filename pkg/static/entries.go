// Unpacked records for every static configuration table
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package static

// Field names follow the hardware documentation (UM10944/UM11040) so they
// can be cross-checked against the register tables directly. All fields are
// uint64 regardless of their packed width.

// ScheduleEntry is one timeslot of the global gate schedule.
type ScheduleEntry struct {
	Winstindex uint64
	Winend     uint64
	Winst      uint64
	Destports  uint64
	Setvalid   uint64
	Txen       uint64
	ResmediaEn uint64
	Resmedia   uint64
	Vlindex    uint64
	Delta      uint64
}

// ScheduleEntryPointsEntry describes where one execution thread enters the
// global schedule.
type ScheduleEntryPointsEntry struct {
	Subschindx uint64
	Delta      uint64
	Address    uint64
}

// ScheduleParamsEntry holds the last schedule slot of each of the 8
// execution threads.
type ScheduleParamsEntry struct {
	Subscheind [8]uint64
}

// ScheduleEntryPointsParamsEntry selects the schedule clock source and the
// number of active sub-schedules.
type ScheduleEntryPointsParamsEntry struct {
	Clksrc    uint64
	Actsubsch uint64
}

// VLLookupEntry classifies frames onto virtual links. Two mutually
// exclusive field layouts exist; Format selects between them and is patched
// from the general parameters table after parsing, so that the record is
// self-contained when packed.
type VLLookupEntry struct {
	Format uint64
	Port   uint64
	// Format == 0
	Destports  uint64
	Iscritical uint64
	Macaddr    uint64
	Vlanid     uint64
	Vlanprior  uint64
	// Format == 1
	Egrmirr  uint64
	Ingrmirr uint64
	Vlid     uint64
}

// VLPolicingEntry polices traffic on a virtual link. Bag and Jitter are
// only meaningful for rate-constrained links (Type == 0).
type VLPolicingEntry struct {
	Type     uint64
	Maxlen   uint64
	Sharindx uint64
	Bag      uint64
	Jitter   uint64
}

// VLForwardingEntry forwards a classified virtual link.
type VLForwardingEntry struct {
	Type      uint64
	Priority  uint64
	Partition uint64
	Destports uint64
}

// VLForwardingParamsEntry sizes the VL memory partitions.
type VLForwardingParamsEntry struct {
	Partspc [8]uint64
	Debugen uint64
}

// L2LookupEntry is one FDB entry. The mask/mirror/tag fields only exist on
// the second generation.
type L2LookupEntry struct {
	Mirrvlan    uint64
	Mirr        uint64
	Retag       uint64
	MaskIotag   uint64
	MaskVlanid  uint64
	MaskMacaddr uint64
	Iotag       uint64
	Vlanid      uint64
	Macaddr     uint64
	Destports   uint64
	Enfport     uint64
	Index       uint64
}

// L2LookupParamsEntry configures the FDB as a whole.
type L2LookupParamsEntry struct {
	// P/Q/R/S only
	Drpbc       uint64
	Drpmc       uint64
	Drpuni      uint64
	Maxaddrp    [5]uint64
	StartDynspc uint64
	Drpnolearn  uint64
	UseStatic   uint64
	OwrDyn      uint64
	LearnOnce   uint64
	// Shared
	Maxage uint64
	// E/T only
	DynTbsz uint64
	Poly    uint64
	// Shared
	SharedLearn  uint64
	NoEnfHostprt uint64
	NoMgmtLearn  uint64
}

// L2PolicingEntry is one ingress policer.
type L2PolicingEntry struct {
	Sharindx  uint64
	Smax      uint64
	Rate      uint64
	Maxlen    uint64
	Partition uint64
}

// VlanLookupEntry is one VLAN's port membership.
type VlanLookupEntry struct {
	VingMirr  uint64
	VegrMirr  uint64
	VmembPort uint64
	VlanBc    uint64
	TagPort   uint64
	Vlanid    uint64
}

// L2ForwardingEntry holds per-port reachability and, for the first 5
// entries, the VLAN priority remap.
type L2ForwardingEntry struct {
	BcDomain  uint64
	ReachPort uint64
	FlDomain  uint64
	VlanPmap  [8]uint64
}

// L2ForwardingParamsEntry sizes the L2 memory partitions.
type L2ForwardingParamsEntry struct {
	MaxDynp uint64
	PartSpc [8]uint64
}

// MACConfigEntry configures one port's MAC. The mirroring and special-tag
// drop fields only exist on the second generation.
type MACConfigEntry struct {
	Top        [8]uint64
	Base       [8]uint64
	Enabled    [8]uint64
	Ifg        uint64
	Speed      uint64
	TpDelin    uint64
	TpDelout   uint64
	Maxage     uint64
	Vlanprio   uint64
	Vlanid     uint64
	IngMirr    uint64
	EgrMirr    uint64
	Drpnona664 uint64
	Drpdtag    uint64
	Drpsotag   uint64
	Drpsitag   uint64
	Drpuntag   uint64
	Retag      uint64
	DynLearn   uint64
	Egress     uint64
	Ingress    uint64
	Mirrcie    uint64
	Mirrcetag  uint64
	Ingmirrvid uint64
	Ingmirrpcp uint64
	Ingmirrdei uint64
}

// ClkSyncParamsEntry configures the time-triggered clock synchronization
// engine.
type ClkSyncParamsEntry struct {
	Etssrcpcf    uint64
	Waitthsync   uint64
	Wfintmout    uint64
	Unsytotsyth  uint64
	Unsytosyth   uint64
	Tsytosyth    uint64
	Tsyth        uint64
	Tsytousyth   uint64
	Syth         uint64
	Sytousyth    uint64
	Sypriority   uint64
	Sydomain     uint64
	Stth         uint64
	Sttointth    uint64
	Pcfsze       uint64
	Pcfpriority  uint64
	Obvwinsz     uint64
	Numunstbcy   uint64
	Numstbcy     uint64
	Maxtranspclk uint64
	Maxintegcy   uint64
	Listentmout  uint64
	Intcydur     uint64
	Inttotentth  uint64
	Vlidout      uint64
	Vlidimnmin   uint64
	Vlidinmax    uint64
	Caentmout    uint64
	Accdevwin    uint64
	Vlidselect   uint64
	Tentsyrelen  uint64
	Asytensyen   uint64
	Sytostben    uint64
	Syrelen      uint64
	Sysyen       uint64
	Syasyen      uint64
	Ipcframesy   uint64
	Stabasyen    uint64
	Swmaster     uint64
	Fullcbg      uint64
	Srcport      [8]uint64
}

// AVBParamsEntry holds the meta frame source and destination MACs.
type AVBParamsEntry struct {
	L2cbs     uint64
	CasMaster uint64
	Destmeta  uint64
	Srcmeta   uint64
}

// GeneralParamsEntry is the chip-wide parameters singleton.
type GeneralParamsEntry struct {
	Vllupformat uint64
	MirrPtacu   uint64
	Switchid    uint64
	Hostprio    uint64
	MacFltres1  uint64
	MacFltres0  uint64
	MacFlt1     uint64
	MacFlt0     uint64
	InclSrcpt1  uint64
	InclSrcpt0  uint64
	SendMeta1   uint64
	SendMeta0   uint64
	CascPort    uint64
	HostPort    uint64
	MirrPort    uint64
	Vlmarker    uint64
	Vlmask      uint64
	Tpid        uint64
	Ignore2stf  uint64
	Tpid2       uint64
	// P/Q/R/S only
	QueueTs    uint64
	Egrmirrvid uint64
	Egrmirrpcp uint64
	Egrmirrdei uint64
	ReplayPort uint64
}

// RetaggingEntry rewrites one VLAN on its way between two ports.
type RetaggingEntry struct {
	EgrPort    uint64
	IngPort    uint64
	VlanIng    uint64
	VlanEgr    uint64
	DoNotLearn uint64
	Destports  uint64
}

// XMIIParamsEntry selects each port's MII protocol and PHY/MAC role.
type XMIIParamsEntry struct {
	PhyMac   [5]uint64
	XMIIMode [5]uint64
}

// SGMIIEntry exposes the SGMII PCS registers of port 4 on R/S.
type SGMIIEntry struct {
	DigitalErrorCnt uint64
	DigitalControl2 uint64
	DebugControl    uint64
	TestControl     uint64
	AutonegControl  uint64
	DigitalControl1 uint64
	AutonegAdv      uint64
	BasicControl    uint64
}

// TableHeader precedes each table's packed entries on the wire.
type TableHeader struct {
	BlockID uint64
	Len     uint64
	CRC     uint64
}
