package health

import "syscall"

// statfsReal wraps syscall.Statfs, the same Linux-only filesystem
// statistics call the source's storage probe used (via statvfs(3), the C
// equivalent). This package targets the PAC boot host, which is Linux; no
// portable fallback is provided because none of the sibling probes (EDAC,
// thermal, hwmon, /proc/meminfo) exist outside Linux either.
func statfsReal(path string) (totalBlocks, availBlocks uint64, err error) {
	var st syscall.Statfs_t

	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0, err
	}

	return uint64(st.Blocks), uint64(st.Bavail), nil
}
