// Package simulator implements a minimal Modbus TCP inverter stand-in for
// development without hardware. It answers holding-register reads only,
// which is all the monitor ever issues.
package simulator

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sync"
)

const (
	functionReadHoldingRegs = 0x03

	exceptionIllegalFunction = 0x01
	exceptionIllegalDataAddr = 0x02
	exceptionIllegalDataVal  = 0x03
)

var (
	errOutOfRange    = errors.New("out of range")
	errInvalidQty    = errors.New("invalid quantity")
	errInvalidPDULen = errors.New("invalid pdu length")
)

// Server is a Modbus TCP server backed by a flat holding-register image.
type Server struct {
	listener  net.Listener
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	registers []uint16
	// absent marks addresses the simulated device does not implement; reads
	// touching them answer with an illegal data address exception, the same
	// way a real inverter without the optional peripheral would.
	absent map[uint16]bool
}

// NewServer constructs a server covering the full 16-bit address space.
func NewServer() *Server {
	return &Server{
		registers: make([]uint16, 65536),
		absent:    make(map[uint16]bool),
		quit:      make(chan struct{}),
	}
}

// Listen starts accepting Modbus TCP connections on the provided address.
func (s *Server) Listen(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address, useful with ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}

		length := binary.BigEndian.Uint16(header[4:6])
		if length == 0 {
			continue
		}

		pduLength := int(length - 1)
		if pduLength <= 0 {
			continue
		}

		unitID := header[6]
		pdu := make([]byte, pduLength)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		response := s.handlePDU(pdu)
		if len(response) == 0 {
			continue
		}

		binary.BigEndian.PutUint16(header[2:4], 0)
		binary.BigEndian.PutUint16(header[4:6], uint16(len(response)+1))
		header[6] = unitID

		if _, err := conn.Write(header); err != nil {
			return
		}
		if _, err := conn.Write(response); err != nil {
			return
		}
	}
}

func (s *Server) handlePDU(pdu []byte) []byte {
	if len(pdu) == 0 {
		return exceptionResponse(0, exceptionIllegalFunction)
	}

	function := pdu[0]
	if function != functionReadHoldingRegs {
		return exceptionResponse(function, exceptionIllegalFunction)
	}
	data, err := s.readRegisters(pdu)
	if err != nil {
		return exceptionResponse(function, errToCode(err))
	}
	return append([]byte{function, byte(len(data))}, data...)
}

func (s *Server) readRegisters(pdu []byte) ([]byte, error) {
	if len(pdu) < 5 {
		return nil, errInvalidPDULen
	}
	start := binary.BigEndian.Uint16(pdu[1:3])
	quantity := binary.BigEndian.Uint16(pdu[3:5])
	if quantity == 0 || quantity > 125 {
		return nil, errInvalidQty
	}
	end := int(start) + int(quantity)
	if end > len(s.registers) {
		return nil, errOutOfRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]byte, quantity*2)
	for i := 0; i < int(quantity); i++ {
		addr := start + uint16(i)
		if s.absent[addr] {
			return nil, errOutOfRange
		}
		binary.BigEndian.PutUint16(result[i*2:(i+1)*2], s.registers[addr])
	}
	return result, nil
}

func exceptionResponse(function byte, code byte) []byte {
	if function == 0 {
		function = 0x80
	} else {
		function = function | 0x80
	}
	return []byte{function, code}
}

func errToCode(err error) byte {
	switch {
	case errors.Is(err, errOutOfRange):
		return exceptionIllegalDataAddr
	case errors.Is(err, errInvalidQty):
		return exceptionIllegalDataVal
	case errors.Is(err, errInvalidPDULen):
		return exceptionIllegalDataVal
	default:
		return exceptionIllegalFunction
	}
}

// Close stops the server and waits for all goroutines to exit.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
}

// MarkAbsent makes qty registers starting at address answer with an illegal
// data address exception, simulating a missing peripheral.
func (s *Server) MarkAbsent(address, qty uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := uint16(0); i < qty; i++ {
		s.absent[address+i] = true
	}
}

// SetU16 stores a single-word unsigned value.
func (s *Server) SetU16(address uint16, value uint16) {
	s.mu.Lock()
	s.registers[address] = value
	s.mu.Unlock()
}

// SetI16 stores a single-word signed value.
func (s *Server) SetI16(address uint16, value int16) {
	s.SetU16(address, uint16(value))
}

// SetU32 stores a two-word big-endian unsigned value.
func (s *Server) SetU32(address uint16, value uint32) {
	s.mu.Lock()
	s.registers[address] = uint16(value >> 16)
	s.registers[address+1] = uint16(value & 0xFFFF)
	s.mu.Unlock()
}

// SetI32 stores a two-word big-endian signed value.
func (s *Server) SetI32(address uint16, value int32) {
	s.SetU32(address, uint32(value))
}

// SetScaled rounds value*gain into a single-word signed register.
func (s *Server) SetScaled(address uint16, value, gain float64) {
	s.SetI16(address, int16(math.Round(value*gain)))
}

// SetScaled32 rounds value*gain into a two-word signed register.
func (s *Server) SetScaled32(address uint16, value, gain float64) {
	s.SetI32(address, int32(math.Round(value*gain)))
}
