package rid

import "time"

// Config holds parser tunables. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// UAVTimeout is how long a tracked aircraft survives without a new
	// sighting before Cleanup evicts it.
	UAVTimeout time.Duration

	// EnableDeduplication merges decoded frames into the session
	// registry by aircraft ID.
	EnableDeduplication bool

	EnableASTM bool
	EnableASD  bool
	EnableCN   bool
}

// DefaultConfig returns the stock configuration: 30 s timeout, dedup on,
// ASTM on, ASD and CN off.
func DefaultConfig() Config {
	return Config{
		UAVTimeout:          30 * time.Second,
		EnableDeduplication: true,
		EnableASTM:          true,
	}
}

// Parser routes raw frames to the protocol decoders and merges successful
// decodes into its session registry. A Parser is not safe for concurrent
// mutation; confine it to one goroutine or serialize access externally.
// Parser instances are fully independent of each other.
type Parser struct {
	config  Config
	session *SessionRegistry

	astm ASTMDecoder
	wifi WiFiDecoder
	asd  ASDStanDecoder
	cn   CNRIDDecoder
}

// NewParser creates a parser with the default configuration.
func NewParser() *Parser {
	return NewParserWithConfig(DefaultConfig())
}

// NewParserWithConfig creates a parser with cfg.
func NewParserWithConfig(cfg Config) *Parser {
	return &Parser{
		config:  cfg,
		session: NewSessionRegistry(cfg.UAVTimeout),
	}
}

// Parse decodes one raw frame. Enabled protocols are probed in priority
// order: ASTM Bluetooth, ASTM WiFi, ASD-STAN, CN. The frame's transport,
// RSSI, and timestamp are stamped onto the UAV before decoding; decoders
// may refine the transport when the framing reveals a more specific one.
func (p *Parser) Parse(frame *RawFrame) ParseResult {
	var result ParseResult

	if len(frame.Payload) == 0 {
		result.Error = "Empty payload"
		return result
	}

	if p.config.EnableASTM && p.astm.IsRemoteID(frame.Payload) {
		result.IsRemoteID = true

		uav := p.newUAV(frame)
		decode := p.astm.Decode(frame.Payload, &uav)

		if decode.Success {
			result.Success = true
			result.Protocol = ProtocolASTMF3411
			result.UAV = uav
			p.merge(&uav)
		} else {
			result.Error = decode.Error
		}

		return result
	}

	if p.config.EnableASTM && p.wifi.IsRemoteID(frame.Payload) {
		result.IsRemoteID = true

		uav := p.newUAV(frame)

		var decode DecodeResult
		if frame.Transport == TransportWiFiNAN {
			decode = p.wifi.DecodeNAN(frame.Payload, &uav)
		} else {
			decode = p.wifi.DecodeBeacon(frame.Payload, &uav)
			if !decode.Success {
				decode = p.wifi.DecodeNAN(frame.Payload, &uav)
			}
		}

		if decode.Success {
			result.Success = true
			result.Protocol = uav.Protocol
			result.UAV = uav
			p.merge(&uav)
		} else {
			result.Error = decode.Error
		}

		return result
	}

	if p.config.EnableASD && p.asd.IsRemoteID(frame.Payload) {
		result.IsRemoteID = true

		uav := p.newUAV(frame)
		decode := p.asd.Decode(frame.Payload, &uav)

		if decode.Success {
			result.Success = true
			result.Protocol = ProtocolASDStan
			result.UAV = uav
			p.merge(&uav)
		} else {
			result.Error = decode.Error
		}

		return result
	}

	if p.config.EnableCN && p.cn.IsRemoteID(frame.Payload) {
		result.IsRemoteID = true

		uav := p.newUAV(frame)
		decode := p.cn.Decode(frame.Payload, &uav)

		if decode.Success {
			result.Success = true
			result.Protocol = ProtocolCNRID
			result.UAV = uav
			p.merge(&uav)
		} else {
			result.Error = decode.Error
		}

		return result
	}

	result.Error = "No matching protocol decoder"
	return result
}

// ParseBytes is a convenience wrapper stamping the current time.
func (p *Parser) ParseBytes(payload []byte, rssi int8, transport TransportType) ParseResult {
	frame := RawFrame{
		Payload:   payload,
		RSSI:      rssi,
		Transport: transport,
		Timestamp: time.Now(),
	}
	return p.Parse(&frame)
}

func (p *Parser) newUAV(frame *RawFrame) UAVObject {
	return UAVObject{
		Transport: frame.Transport,
		RSSI:      frame.RSSI,
		LastSeen:  frame.Timestamp,
	}
}

func (p *Parser) merge(uav *UAVObject) {
	if p.config.EnableDeduplication && uav.ID != "" {
		p.session.Update(uav)
	}
}

// ActiveUAVs returns a snapshot of all tracked aircraft, most recently seen
// first.
func (p *Parser) ActiveUAVs() []UAVObject {
	return p.session.ActiveUAVs()
}

// GetUAV returns a copy of the tracked record for id.
func (p *Parser) GetUAV(id string) (UAVObject, bool) {
	return p.session.Get(id)
}

// ActiveCount returns the number of tracked aircraft.
func (p *Parser) ActiveCount() int {
	return p.session.Count()
}

// Clear drops all tracked aircraft without firing callbacks.
func (p *Parser) Clear() {
	p.session.Clear()
}

// Cleanup evicts timed-out aircraft and returns their IDs. Eviction happens
// only here, never spontaneously between Parse calls.
func (p *Parser) Cleanup() []string {
	return p.session.Cleanup()
}

// SetOnNewUAV replaces the first-sighting callback.
func (p *Parser) SetOnNewUAV(cb UAVCallback) {
	p.session.SetOnNewUAV(cb)
}

// SetOnUAVUpdate replaces the merge callback.
func (p *Parser) SetOnUAVUpdate(cb UAVCallback) {
	p.session.SetOnUAVUpdate(cb)
}

// SetOnUAVTimeout replaces the eviction callback.
func (p *Parser) SetOnUAVTimeout(cb UAVCallback) {
	p.session.SetOnUAVTimeout(cb)
}
