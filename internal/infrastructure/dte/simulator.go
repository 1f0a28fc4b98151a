package dte

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// SimulatorConfig comportamiento del SII simulado.
type SimulatorConfig struct {
	// RejectReceivers RUTs receptores cuyos documentos se rechazan (cualquier formato).
	RejectReceivers []string
	// PendingPolls consultas que responden "recibido" antes del veredicto final.
	PendingPolls int
	// Latency espera artificial por llamada.
	Latency time.Duration
}

type submission struct {
	env      sii.Envelope
	receiver string
	polls    int
	reason   string
}

// Simulator implementa sii.Submitter sin red: valida el XML recibido y decide
// aceptación o rechazo de forma determinista.
type Simulator struct {
	cfg    SimulatorConfig
	reject map[string]bool
	log    *logger.Logger

	mu     sync.Mutex
	tracks map[string]*submission
	down   bool
}

// NewSimulator construye el simulador.
func NewSimulator(cfg SimulatorConfig, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.Nop()
	}
	reject := make(map[string]bool, len(cfg.RejectReceivers))
	for _, r := range cfg.RejectReceivers {
		if n, err := sii.NormalizeRUT(r); err == nil {
			reject[n] = true
		}
	}
	return &Simulator{
		cfg:    cfg,
		reject: reject,
		log:    log.Component("sii-simulador"),
		tracks: make(map[string]*submission),
	}
}

// SetAvailable simula una caída del servicio (false) o su recuperación.
func (s *Simulator) SetAvailable(ok bool) {
	s.mu.Lock()
	s.down = !ok
	s.mu.Unlock()
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.Latency):
		return nil
	}
}

// Submit recibe el envío y devuelve un TrackID.
func (s *Simulator) Submit(ctx context.Context, env sii.Envelope) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return "", sii.ErrUnavailable
	}
	sub := &submission{env: env}
	sub.receiver, sub.reason = s.inspect(env)
	trackID := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	s.tracks[trackID] = sub
	s.log.Debug().Str("track_id", trackID).Str("document_id", env.DocumentID).Int64("folio", env.Folio).Msg("envío recibido")
	return trackID, nil
}

// inspect revisa el XML como lo haría el SII y devuelve el receptor y el motivo de rechazo.
func (s *Simulator) inspect(env sii.Envelope) (receiver, reason string) {
	receiver = env.ReceiverRUT
	if len(env.XML) > 0 {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(env.XML); err != nil {
			return receiver, "XML mal formado"
		}
		if el := doc.FindElement("//IdDoc/Folio"); el == nil || el.Text() != fmt.Sprint(env.Folio) {
			return receiver, "folio del XML no coincide con el envío"
		}
		if el := doc.FindElement("//Receptor/RUTRecep"); el != nil {
			receiver = el.Text()
		}
	}
	if n, err := sii.NormalizeRUT(receiver); err == nil && s.reject[n] {
		return receiver, fmt.Sprintf("receptor %s no autorizado", n)
	}
	return receiver, ""
}

// Status responde el estado del envío.
func (s *Simulator) Status(ctx context.Context, trackID string) (sii.StatusResult, error) {
	if err := s.wait(ctx); err != nil {
		return sii.StatusResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return sii.StatusResult{}, sii.ErrUnavailable
	}
	sub, ok := s.tracks[trackID]
	if !ok {
		return sii.StatusResult{}, fmt.Errorf("sii: track %s desconocido", trackID)
	}
	now := time.Now().UTC()
	if sub.polls < s.cfg.PendingPolls {
		sub.polls++
		return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusRecibido, CheckedAt: now}, nil
	}
	if sub.reason != "" {
		return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusRechazado, Final: true, Reason: sub.reason, CheckedAt: now}, nil
	}
	return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusAceptado, Accepted: true, Final: true, CheckedAt: now}, nil
}

var _ sii.Submitter = (*Simulator)(nil)
