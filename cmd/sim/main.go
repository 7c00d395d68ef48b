// Command sim runs a fake inverter on Modbus TCP so the monitor can be
// exercised without hardware. It seeds a plausible register image and
// drifts the live power figures on a timer.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"solar-monitor/internal/simulator"
)

func main() {
	var listen string
	var interval time.Duration
	var meter, battery bool
	flag.StringVar(&listen, "listen", ":1502", "Modbus TCP listen address")
	flag.DurationVar(&interval, "interval", 5*time.Second, "value update period")
	flag.BoolVar(&meter, "meter", true, "simulate an attached three-phase power meter")
	flag.BoolVar(&battery, "battery", true, "simulate an attached battery")
	flag.Parse()

	srv := simulator.NewServer()
	if err := srv.Listen(listen); err != nil {
		log.Fatalf("start modbus server: %v", err)
	}
	defer srv.Close()

	seed(srv, meter, battery)
	log.Printf("inverter simulator listening on %s", srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down simulator")
			return
		case <-ticker.C:
			drift(srv)
		}
	}
}

// seed fills the register image with a sunny-afternoon baseline.
func seed(srv *simulator.Server, meter, battery bool) {
	now := uint32(time.Now().Unix())

	// state and alarm words
	srv.SetU16(32000, 0x0006) // grid-connected, normally
	srv.SetU16(32002, 0x0003) // locked, PV connected
	srv.SetU32(32003, 0x0000)
	srv.SetU16(32008, 0)
	srv.SetU16(32009, 0)
	srv.SetU16(32010, 0)

	// pv strings 1 and 2
	srv.SetScaled(32016, 380.5, 10)
	srv.SetScaled(32017, 6.2, 100)
	srv.SetScaled(32018, 376.1, 10)
	srv.SetScaled(32019, 6.0, 100)

	srv.SetScaled32(32064, 4650, 1) // input power W
	srv.SetScaled(32066, 401.2, 10)
	srv.SetScaled(32067, 399.8, 10)
	srv.SetScaled(32068, 400.5, 10)
	srv.SetScaled(32069, 231.0, 10)
	srv.SetScaled(32070, 230.4, 10)
	srv.SetScaled(32071, 231.7, 10)
	srv.SetScaled32(32072, 6.51, 1000)
	srv.SetScaled32(32074, 6.47, 1000)
	srv.SetScaled32(32076, 6.55, 1000)
	srv.SetScaled32(32078, 5120, 1)
	srv.SetScaled32(32080, 4500, 1)
	srv.SetScaled32(32082, 120, 1)
	srv.SetScaled(32084, 0.998, 1000)
	srv.SetScaled(32086, 96.8, 100)
	srv.SetScaled(32087, 41.5, 10)
	srv.SetScaled(32088, 3.2, 1000)
	srv.SetU16(32089, 0x0200) // On-grid
	srv.SetU32(32091, now-8*3600)
	srv.SetU32(32093, now-30*3600)
	srv.SetScaled32(32106, 12345.67, 100)
	srv.SetScaled32(32108, 4650, 1)
	srv.SetU32(32110, now)
	srv.SetScaled32(32112, 3.21, 100)
	srv.SetScaled32(32114, 18.45, 100)

	if meter {
		srv.SetU16(37100, 1) // normal
		srv.SetScaled32(37101, 231.0, 10)
		srv.SetScaled32(37103, 230.4, 10)
		srv.SetScaled32(37105, 231.7, 10)
		srv.SetScaled32(37107, 2.1, 100)
		srv.SetScaled32(37109, 1.9, 100)
		srv.SetScaled32(37111, 2.0, 100)
		srv.SetScaled32(37113, -1450, 1) // exporting
		srv.SetScaled32(37115, 85, 1)
		srv.SetScaled(37117, 0.995, 1000)
		srv.SetScaled(37118, 50.02, 100)
		srv.SetScaled32(37119, 845.12, 100)
		srv.SetScaled32(37121, 412.50, 100)
		srv.SetScaled32(37123, 31.20, 100)
		srv.SetScaled32(37126, 401.2, 10)
		srv.SetScaled32(37128, 399.8, 10)
		srv.SetScaled32(37130, 400.5, 10)
		srv.SetScaled32(37132, -480, 1)
		srv.SetScaled32(37134, -470, 1)
		srv.SetScaled32(37136, -500, 1)
	} else {
		srv.MarkAbsent(37100, 40)
	}

	if battery {
		srv.SetScaled(37760, 72.5, 10)
		srv.SetU16(37762, 2) // running
		srv.SetScaled(37763, 48.2, 10)
		srv.SetScaled(37764, 12.4, 10)
		srv.SetScaled32(37765, 1800, 1) // charging
		srv.SetScaled32(37780, 1520.10, 100)
		srv.SetScaled32(37782, 1430.75, 100)
		srv.SetScaled32(37784, 6.30, 100)
		srv.SetScaled32(37786, 4.85, 100)

		// battery unit 1
		srv.SetU16(37000, 2)
		srv.SetScaled32(37001, 1800, 1)
		srv.SetScaled(37003, 48.2, 10)
		srv.SetScaled(37004, 72.5, 10)
		srv.SetU16(37006, 4) // maximise self consumption
		srv.SetU32(37007, 5000)
		srv.SetU32(37009, 5000)
		srv.SetScaled32(37012, 6.30, 100)
		srv.SetScaled32(37014, 4.85, 100)
		srv.SetScaled(37021, 12.4, 10)
		srv.SetScaled(37022, 28.5, 10)
		srv.SetU16(37025, 94)
		srv.SetScaled32(37026, 1520.10, 100)
		srv.SetScaled32(37028, 1430.75, 100)

		// forcible charge idle, one TOU period 01:00-05:00 charging every day
		srv.SetU16(47100, 0)
		srv.SetU16(47101, 0)
		srv.SetScaled(47102, 50, 10)
		srv.SetU16(47103, 30)
		srv.SetU32(47247, 2500)
		srv.SetU32(47249, 2500)
		srv.SetU16(47255, 1)
		srv.SetU16(47256, 60)
		srv.SetU16(47257, 300)
		srv.SetU16(47258, 0x807F) // all days, charge flag in bit 15
	} else {
		srv.MarkAbsent(37760, 30)
		srv.MarkAbsent(37000, 30)
		srv.MarkAbsent(47086, 220)
	}
}

// drift nudges the live power readings so graphs move.
func drift(srv *simulator.Server) {
	jitter := func(base, spread float64) float64 {
		return base + (rand.Float64()*2-1)*spread
	}
	power := math.Max(0, jitter(4500, 350))
	srv.SetScaled32(32064, power+150, 1)
	srv.SetScaled32(32080, power, 1)
	srv.SetScaled32(32108, power+150, 1)
	srv.SetScaled(32087, jitter(41.5, 1.2), 10)
	srv.SetScaled32(37113, jitter(-1450, 200), 1)
}
