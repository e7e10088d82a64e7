package scanner

import (
	"strings"
	"sync"
	"time"
)

// KeyEvent es una tecla cruda que llega desde la página activa del terminal.
// EditableTarget marca que el foco estaba en un input/textarea editable: en
// ese caso el evento se ignora por completo y la escritura normal convive con
// el escaneo global.
type KeyEvent struct {
	Key            string `json:"key"`
	EditableTarget bool   `json:"editable_target"`
}

const enterKey = "Enter"

// Decoder reconstruye tokens de código de barras a partir de ráfagas de teclas.
// Máquina de estados: IDLE -> ACCUMULATING -> (COMMIT | DISCARD) -> IDLE.
//
// Cada carácter aceptado rearma el timer de inactividad (debounce); al expirar,
// o al recibir Enter, el buffer recortado se emite como token solo si alcanza
// la longitud mínima. El buffer se limpia en ambos casos.
//
// La suspensión es un contador reentrante, no un booleano: una página puede
// anidar suspensiones (por ejemplo mientras un modal tiene el foco) y el
// escaneo solo se reactiva cuando todas terminaron.
type Decoder struct {
	idle   time.Duration
	minLen int
	emit   func(token string)

	mu        sync.Mutex
	buf       strings.Builder
	timer     *time.Timer
	suspended int
}

// NewDecoder construye un decodificador. emit recibe cada token comprometido;
// se invoca desde la goroutine del timer o de la tecla Enter, ya fuera del lock.
func NewDecoder(idle time.Duration, minLen int, emit func(token string)) *Decoder {
	return &Decoder{idle: idle, minLen: minLen, emit: emit}
}

// Key procesa una tecla en orden de llegada.
func (d *Decoder) Key(ev KeyEvent) {
	d.mu.Lock()

	if ev.EditableTarget || d.suspended > 0 {
		d.mu.Unlock()
		return
	}

	if ev.Key == enterKey {
		token := d.commitLocked()
		d.mu.Unlock()
		if token != "" {
			d.emit(token)
		}
		return
	}

	if !acceptedChar(ev.Key) {
		// Tecla no aceptada distinta de Enter: se ignora sin resetear el buffer.
		d.mu.Unlock()
		return
	}

	d.buf.WriteString(ev.Key)
	d.armTimerLocked()
	d.mu.Unlock()
}

// Suspend incrementa el contador de suspensión; las teclas se ignoran mientras sea > 0.
func (d *Decoder) Suspend() {
	d.mu.Lock()
	d.suspended++
	d.mu.Unlock()
}

// Resume decrementa el contador de suspensión (nunca por debajo de 0).
func (d *Decoder) Resume() {
	d.mu.Lock()
	if d.suspended > 0 {
		d.suspended--
	}
	d.mu.Unlock()
}

// Suspended devuelve el valor actual del contador.
func (d *Decoder) Suspended() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// Reset descarta buffer y timer pendiente (cambio de página).
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.stopTimerLocked()
	d.buf.Reset()
	d.mu.Unlock()
}

// onIdle corre al expirar el timer de inactividad.
func (d *Decoder) onIdle() {
	d.mu.Lock()
	token := d.commitLocked()
	d.mu.Unlock()
	if token != "" {
		d.emit(token)
	}
}

// commitLocked limpia el buffer y devuelve el token a emitir, o "" si se
// descarta por no alcanzar la longitud mínima.
func (d *Decoder) commitLocked() string {
	d.stopTimerLocked()
	token := strings.TrimSpace(d.buf.String())
	d.buf.Reset()
	if len(token) < d.minLen {
		return ""
	}
	return token
}

func (d *Decoder) armTimerLocked() {
	d.stopTimerLocked()
	d.timer = time.AfterFunc(d.idle, d.onIdle)
}

func (d *Decoder) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// acceptedChar acepta alfanuméricos y los separadores habituales de códigos de barras.
func acceptedChar(key string) bool {
	if len(key) != 1 {
		return false
	}
	c := key[0]
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '-' || c == '_' || c == '.':
		return true
	}
	return false
}
