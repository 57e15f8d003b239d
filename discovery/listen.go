// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

// listenMulticast binds the receive socket on the group port and joins the
// group. The socket is shared with other contexts on the same host through
// SO_REUSEADDR/SO_REUSEPORT.
func listenMulticast(ctx context.Context, config *Config) (*net.UDPConn, error) {
	ifi, err := config.networkInterface()
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(net.IPv4zero.String(), strconv.Itoa(config.Port())))
	if err != nil {
		return nil, err
	}

	conn := pc.(*net.UDPConn)
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.JoinGroup(ifi, &net.UDPAddr{IP: config.groupAddr().IP}); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	if err := pconn.SetMulticastLoopback(config.Loopback()); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return conn, nil
}

// dialMulticast opens the send socket. On most platforms multicast loopback
// is a sender option, so it is set here as well.
func dialMulticast(config *Config) (*net.UDPConn, error) {
	ifi, err := config.networkInterface()
	if err != nil {
		return nil, err
	}

	conn, err := net.DialUDP("udp4", nil, config.groupAddr())
	if err != nil {
		return nil, err
	}

	pconn := ipv4.NewPacketConn(conn)
	if ifi != nil {
		if err := pconn.SetMulticastInterface(ifi); err != nil {
			return nil, errors.Join(err, conn.Close())
		}
	}
	if err := pconn.SetMulticastLoopback(config.Loopback()); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	if err := pconn.SetMulticastTTL(1); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return conn, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
