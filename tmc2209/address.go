// Package tmc2209 implements the register map and half-duplex UART
// protocol for the Trinamic TMC2209 stepper driver.
package tmc2209

// TMC2209 Register addresses. Only the registers this firmware's
// single full-step axis actually touches (GCONF, IHOLD_IRUN, IFCNT,
// CHOPCONF) have a corresponding packed register type below; the rest
// are listed because WriteRegisterUnchecked/WriteRegisterVerified
// accept any address, not because something packs a value for them.
const (
	GCONF      = 0x00
	GSTAT      = 0x01
	IFCNT      = 0x02
	IOIN       = 0x06
	IHOLD_IRUN = 0x10
	TPOWERDOWN = 0x11
	TSTEP      = 0x12
	TPWMTHRS   = 0x13
	TCOOLTHRS  = 0x14
	VACTUAL    = 0x22
	SGTHRS     = 0x40
	SG_RESULT  = 0x41
	COOLCONF   = 0x42
	MSCNT      = 0x6A
	MSCURACT   = 0x6B
	CHOPCONF   = 0x6C
	DRV_STATUS = 0x6F
	PWMCONF    = 0x70
	PWM_SCALE  = 0x71
	PWM_AUTO   = 0x72
)

// RegisterComm is the transport a packed register type writes/reads
// itself through; *Driver satisfies it directly.
type RegisterComm interface {
	ReadRegister(register uint8, driverIndex uint8) (uint32, error)
	WriteRegister(register uint8, value uint32, driverIndex uint8) error
}

// Register is the interface every packed register type implements for
// generic access.
type Register interface {
	Pack() uint32
	Unpack(value uint32)
	GetAddress() uint8
}

// Gconf represents the TMC2209 GCONF register: global configuration
// bits selecting UART-driven operation (PdnDisable, MstepRegSelect)
// over the pin-strapped defaults.
type Gconf struct {
	IScaleAnalog   uint32
	InternalRsense uint32
	EnSpreadcycle  uint32
	Shaft          uint32
	IndexOtpw      uint32
	IndexStep      uint32
	PdnDisable     uint32
	MstepRegSelect uint32
	MultistepFilt  uint32
	Reserved       uint32
	Bytes          uint32
	RegisterAddr   uint8
}

func (gconf *Gconf) GetAddress() uint8 {
	return gconf.RegisterAddr
}

// Pack the individual fields into the Bytes field (a single 32-bit value).
func (gconf *Gconf) Pack() uint32 {
	gconf.Bytes = (gconf.IScaleAnalog & 0x01) |
		((gconf.InternalRsense & 0x01) << 1) |
		((gconf.EnSpreadcycle & 0x01) << 2) |
		((gconf.Shaft & 0x01) << 3) |
		((gconf.IndexOtpw & 0x01) << 4) |
		((gconf.IndexStep & 0x01) << 5) |
		((gconf.PdnDisable & 0x01) << 6) |
		((gconf.MstepRegSelect & 0x01) << 7) |
		((gconf.MultistepFilt & 0x01) << 8) |
		((gconf.Reserved & 0x1FFFFF) << 9) // 21 bits reserved
	return gconf.Bytes
}

// Unpack the Bytes field into the individual fields.
func (gconf *Gconf) Unpack(uint32) {
	gconf.IScaleAnalog = gconf.Bytes & 0x01
	gconf.InternalRsense = (gconf.Bytes >> 1) & 0x01
	gconf.EnSpreadcycle = (gconf.Bytes >> 2) & 0x01
	gconf.Shaft = (gconf.Bytes >> 3) & 0x01
	gconf.IndexOtpw = (gconf.Bytes >> 4) & 0x01
	gconf.IndexStep = (gconf.Bytes >> 5) & 0x01
	gconf.PdnDisable = (gconf.Bytes >> 6) & 0x01
	gconf.MstepRegSelect = (gconf.Bytes >> 7) & 0x01
	gconf.MultistepFilt = (gconf.Bytes >> 8) & 0x01
	gconf.Reserved = (gconf.Bytes >> 9) & 0x1FFFFF
}
func NewGconf() *Gconf {
	return &Gconf{
		RegisterAddr: GCONF,
	}
}
func (gconf *Gconf) Read(comm RegisterComm, driverIndex uint8) (uint32, error) {
	return comm.ReadRegister(gconf.RegisterAddr, driverIndex)
}
func (gconf *Gconf) Write(comm RegisterComm, driverIndex uint8, value uint32) error {
	return comm.WriteRegister(gconf.RegisterAddr, value, driverIndex)
}

// Chopconf represents the TMC2209 CHOPCONF register: chopper timing
// and the Mres microstepping-resolution field (8 selects full-step).
type Chopconf struct {
	Toff         uint32
	Hstrt        uint32
	Hend         uint32
	Tbl          uint32
	Vsense       uint32
	Mres         uint32
	Intpol       uint32
	Dedge        uint32
	Diss2g       uint32
	Diss2vs      uint32
	Bytes        uint32
	RegisterAddr uint8
}

func (chopconf *Chopconf) GetAddress() uint8 {
	return chopconf.RegisterAddr
}

// Pack the individual fields into the Bytes field (a single 32-bit value).
func (chopconf *Chopconf) Pack() uint32 {
	chopconf.Bytes = (chopconf.Toff & 0x0F) |
		((chopconf.Hstrt & 0x07) << 4) |
		((chopconf.Hend & 0x0F) << 7) |
		((chopconf.Tbl & 0x03) << 15) |
		((chopconf.Vsense & 0x01) << 17) |
		((chopconf.Mres & 0x0F) << 24) |
		((chopconf.Intpol & 0x01) << 28) |
		((chopconf.Dedge & 0x01) << 29) |
		((chopconf.Diss2g & 0x01) << 30) |
		((chopconf.Diss2vs & 0x01) << 31)
	return chopconf.Bytes
}

// Unpack the Bytes field into the individual fields.
func (chopconf *Chopconf) Unpack(uint32) {
	chopconf.Toff = chopconf.Bytes & 0x0F
	chopconf.Hstrt = (chopconf.Bytes >> 4) & 0x07
	chopconf.Hend = (chopconf.Bytes >> 7) & 0x0F
	chopconf.Tbl = (chopconf.Bytes >> 15) & 0x03
	chopconf.Vsense = (chopconf.Bytes >> 17) & 0x01
	chopconf.Mres = (chopconf.Bytes >> 24) & 0x0F
	chopconf.Intpol = (chopconf.Bytes >> 28) & 0x01
	chopconf.Dedge = (chopconf.Bytes >> 29) & 0x01
	chopconf.Diss2g = (chopconf.Bytes >> 30) & 0x01
	chopconf.Diss2vs = (chopconf.Bytes >> 31) & 0x01
}
func NewChopconf() *Chopconf {
	return &Chopconf{
		RegisterAddr: CHOPCONF,
	}
}
func (chopconf *Chopconf) Read(comm RegisterComm, driverIndex uint8) (uint32, error) {
	return comm.ReadRegister(chopconf.RegisterAddr, driverIndex)
}
func (chopconf *Chopconf) Write(comm RegisterComm, driverIndex uint8, value uint32) error {
	return comm.WriteRegister(chopconf.RegisterAddr, value, driverIndex)
}

// IholdIrun represents the TMC2209 IHOLD_IRUN register: the hold and
// run current scale and the delay between them.
type IholdIrun struct {
	Ihold        uint32 // 5 bits for hold current
	Irun         uint32 // 5 bits for run current
	Iholddelay   uint32 // 4 bits for hold delay
	Bytes        uint32
	RegisterAddr uint8
}

func (iholdIrun *IholdIrun) GetAddress() uint8 {
	return iholdIrun.RegisterAddr
}

// Pack the individual fields into the Bytes field (a single 32-bit value).
func (iholdIrun *IholdIrun) Pack() uint32 {
	iholdIrun.Bytes = (iholdIrun.Ihold & 0x1F) |
		((iholdIrun.Irun & 0x1F) << 5) |
		((iholdIrun.Iholddelay & 0x0F) << 10)
	return iholdIrun.Bytes
}

// Unpack the Bytes field into the individual fields.
func (iholdIrun *IholdIrun) Unpack(uint32) {
	iholdIrun.Ihold = iholdIrun.Bytes & 0x1F
	iholdIrun.Irun = (iholdIrun.Bytes >> 5) & 0x1F
	iholdIrun.Iholddelay = (iholdIrun.Bytes >> 10) & 0x0F
}
func NewIholdIrun() *IholdIrun {
	return &IholdIrun{
		RegisterAddr: IHOLD_IRUN,
	}
}
func (iholdIrun *IholdIrun) Read(comm RegisterComm, driverIndex uint8) (uint32, error) {
	return comm.ReadRegister(iholdIrun.RegisterAddr, driverIndex)
}
func (iholdIrun *IholdIrun) Write(comm RegisterComm, driverIndex uint8, value uint32) error {
	return comm.WriteRegister(iholdIrun.RegisterAddr, value, driverIndex)
}

// Ifcnt represents the TMC2209 IFCNT register: the interface write
// transmission counter the write-verification path reads back.
type Ifcnt struct {
	Ifcnt        uint32
	Reserved     uint32
	Bytes        uint32
	RegisterAddr uint8
}

func (ifcnt *Ifcnt) GetAddress() uint8 {
	return ifcnt.RegisterAddr
}

// Pack the individual fields into the Bytes field (a single 32-bit value).
func (ifcnt *Ifcnt) Pack() uint32 {
	ifcnt.Bytes = (ifcnt.Ifcnt & 0xFF) |
		((ifcnt.Reserved & 0xFFFFFF) << 8)
	return ifcnt.Bytes
}

// Unpack the Bytes field into the individual fields.
func (ifcnt *Ifcnt) Unpack(uint32) {
	ifcnt.Ifcnt = ifcnt.Bytes & 0xFF
	ifcnt.Reserved = (ifcnt.Bytes >> 8) & 0xFFFFFF
}
func NewIfcnt() *Ifcnt {
	return &Ifcnt{
		RegisterAddr: IFCNT,
	}
}
func (ifcnt *Ifcnt) Read(comm RegisterComm, driverIndex uint8) (uint32, error) {
	return comm.ReadRegister(ifcnt.RegisterAddr, driverIndex)
}
func (ifcnt *Ifcnt) Write(comm RegisterComm, driverIndex uint8, value uint32) error {
	return comm.WriteRegister(ifcnt.RegisterAddr, value, driverIndex)
}
