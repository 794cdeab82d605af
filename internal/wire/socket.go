package wire

import (
	"net"

	"golang.org/x/sys/unix"
)

// ReadFromUnix performs one read from conn, returning any data read
// alongside any fds received via SCM_RIGHTS ancillary data. It is the
// single point where the codec touches a real socket; everything else
// in this package operates on already-read bytes so it can be unit
// tested without a live connection.
func ReadFromUnix(conn *net.UnixConn, dataBuf []byte) (data []byte, fds []int, err error) {
	oob := make([]byte, unix.CmsgSpace(4*16)) // room for a handful of fds
	n, oobn, _, _, err := conn.ReadMsgUnix(dataBuf, oob)
	if err != nil {
		return nil, nil, err
	}

	fds, err = parseFds(oob[:oobn])
	if err != nil {
		return nil, nil, err
	}
	return dataBuf[:n], fds, nil
}

// WriteToUnix writes data to conn, attaching fds as SCM_RIGHTS ancillary
// data when present.
func WriteToUnix(conn *net.UnixConn, data []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	_, _, err := conn.WriteMsgUnix(data, oob, nil)
	return err
}

func parseFds(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, msg := range msgs {
		got, err := unix.ParseUnixRights(&msg)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	return fds, nil
}
